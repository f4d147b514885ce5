package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bizcard/internal/apiclient"
	"bizcard/internal/config"
	"bizcard/internal/domain"
	"bizcard/internal/wizard"
)

var errInputClosed = errors.New("input closed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadWizardConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	client := apiclient.New(cfg.APIURL, cfg.Token, logger)
	if client.Token() == "" {
		client, err = signIn(ctx, reader, client)
		if err != nil {
			log.Fatalf("iniciar sesión: %v", err)
		}
	}

	for {
		fmt.Println("\n===== Tarjetas =====")
		fmt.Println("[N] Nueva tarjeta")
		fmt.Println("[L] Listar mis tarjetas")
		fmt.Println("[D] Borrar una tarjeta")
		fmt.Println("[Q] Salir")
		fmt.Print("> ")

		line, ok := readLine(reader)
		if !ok || ctx.Err() != nil {
			return
		}
		switch strings.ToUpper(line) {
		case "N":
			runWizard(ctx, reader, client, cfg.PublicBaseURL, logger)
		case "L":
			if _, err := listCards(ctx, client); err != nil {
				fmt.Printf("Error listando tarjetas: %v\n", err)
			}
		case "D":
			if err := deleteFlow(ctx, reader, client); err != nil {
				fmt.Printf("Error borrando tarjeta: %v\n", err)
			}
		case "Q", "":
			return
		default:
			fmt.Println("Opción inválida.")
		}
	}
}

func signIn(ctx context.Context, reader *bufio.Reader, client *apiclient.Client) (*apiclient.Client, error) {
	fmt.Print("Email: ")
	email, ok := readLine(reader)
	if !ok {
		return nil, errInputClosed
	}
	if err := client.RequestOTP(ctx, email); err != nil {
		return nil, err
	}
	fmt.Print("Código recibido por email: ")
	code, ok := readLine(reader)
	if !ok {
		return nil, errInputClosed
	}
	fmt.Print("Nombre para mostrar (opcional): ")
	displayName, _ := readLine(reader)

	resp, err := client.VerifyOTP(ctx, email, code, displayName)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Sesión iniciada como %s\n", resp.User.Email)
	return client.WithToken(resp.Tokens.AccessToken), nil
}

// runWizard vuelve al menú al cancelar, al terminar o cuando se cierra la entrada.
func runWizard(ctx context.Context, reader *bufio.Reader, client *apiclient.Client, publicBaseURL string, logger *zap.Logger) {
	navigations := make(chan string, 1)
	pipeline := wizard.NewPipeline(logger, client, consoleNotifier{}, channelNavigator(navigations))
	wiz := wizard.New(pipeline)
	defer wiz.Close()

	for {
		if ctx.Err() != nil {
			return
		}
		printStatus(wiz.Status())

		switch wiz.Phase() {
		case wizard.PhaseUserDetails:
			if !editUserDetails(reader, wiz) {
				return
			}
		case wizard.PhaseAppearance:
			if !editAppearance(reader, wiz) {
				return
			}
		case wizard.PhaseReview, wizard.PhaseFailed:
			printReview(wiz)
			if !wiz.Draft().AcceptedTerms {
				fmt.Print("¿Aceptás los términos de uso? [s/N] > ")
				answer, ok := readLine(reader)
				if !ok {
					return
				}
				accepted := strings.EqualFold(answer, "s")
				_ = wiz.Update(func(d *wizard.Draft) { d.AcceptedTerms = accepted })
			}
		case wizard.PhaseCreated:
			card, _ := wiz.Created()
			fmt.Printf("Tarjeta creada: %s (%s)\n", card.Name, card.QRCode)
			fmt.Printf("QR: %s/public-cards/%s/qr.png\n", strings.TrimRight(client.BaseURL(), "/"), card.ID)
			select {
			case path := <-navigations:
				fmt.Printf("Abriendo %s%s\n", strings.TrimRight(publicBaseURL, "/"), path)
			case <-time.After(2 * wizard.NavigationDelay):
			case <-ctx.Done():
			}
			return
		}

		fmt.Print("[S] Siguiente  [A] Atrás  [E] Enviar  [R] Reiniciar  [C] Cancelar > ")
		action, ok := readLine(reader)
		if !ok {
			return
		}
		switch strings.ToUpper(action) {
		case "S", "":
			if _, err := wiz.GoToNextStep(); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "A":
			if _, err := wiz.GoToPrevStep(); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "E":
			if _, err := wiz.Submit(ctx); err != nil && !errors.Is(err, wizard.ErrStale) {
				logger.Debug("submit failed", zap.Error(err))
			}
		case "R":
			wiz.Reset()
		case "C":
			return
		default:
			fmt.Println("Opción inválida.")
		}
	}
}

// editUserDetails devuelve false si la entrada se cerró antes de completar el paso.
func editUserDetails(reader *bufio.Reader, wiz *wizard.Wizard) bool {
	d := wiz.Draft()
	fmt.Println("\n--- Paso 1: Datos ---")
	fields := []struct {
		label string
		value *string
	}{
		{"Nombre", &d.Name},
		{"Cargo", &d.Title},
		{"Email (opcional)", &d.Email},
		{"Teléfono (opcional)", &d.Phone},
		{"Empresa (opcional)", &d.Company},
	}
	for _, f := range fields {
		v, ok := prompt(reader, f.label, *f.value)
		if !ok {
			return false
		}
		*f.value = v
	}
	_ = wiz.Update(func(next *wizard.Draft) {
		next.Name, next.Title, next.Email, next.Phone, next.Company = d.Name, d.Title, d.Email, d.Phone, d.Company
	})
	return true
}

func editAppearance(reader *bufio.Reader, wiz *wizard.Wizard) bool {
	d := wiz.Draft()
	fmt.Println("\n--- Paso 2: Apariencia ---")
	color, ok := prompt(reader, "Color", d.Color)
	if !ok {
		return false
	}
	template, ok := prompt(reader, "Template (modern/classic/minimalist)", d.Template)
	if !ok {
		return false
	}
	_ = wiz.Update(func(d *wizard.Draft) {
		d.Color, d.Template = color, template
	})
	return true
}

func printReview(wiz *wizard.Wizard) {
	vm := wiz.Preview()
	fmt.Println("\n--- Paso 3: Revisión ---")
	fmt.Printf("[%s] %s\n", vm.Initials, vm.Name)
	fmt.Printf("%s\n", vm.Title)
	fmt.Printf("Color %s (texto %s), layout %s\n", vm.Color, vm.TextColor, vm.Layout)
	if vm.Email != "" {
		fmt.Printf("Email: %s\n", vm.Email)
	}
	if vm.Company != "" {
		fmt.Printf("Empresa: %s\n", vm.Company)
	}
	if wiz.Draft().AcceptedTerms {
		fmt.Println("Términos: aceptados")
	} else {
		fmt.Println("Términos: pendientes (no bloquean el envío)")
	}
}

func listCards(ctx context.Context, client *apiclient.Client) ([]domain.BusinessCard, error) {
	cards, err := client.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		fmt.Println("No tenés tarjetas todavía.")
	}
	for i, c := range cards {
		fmt.Printf("[%d] %s - %s (%s)\n", i+1, c.Name, c.Title, c.QRCode)
	}
	return cards, nil
}

func deleteFlow(ctx context.Context, reader *bufio.Reader, client *apiclient.Client) error {
	cards, err := listCards(ctx, client)
	if err != nil || len(cards) == 0 {
		return err
	}
	fmt.Print("Número de tarjeta a borrar: ")
	choice, ok := readLine(reader)
	if !ok {
		return nil
	}
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(cards) {
		fmt.Println("Selección inválida.")
		return nil
	}
	card := cards[idx-1]
	fmt.Printf("Borrar %q? Esto no se puede deshacer [s/N]: ", card.Name)
	if answer, _ := readLine(reader); !strings.EqualFold(answer, "s") {
		return nil
	}
	if err := client.DeleteCard(ctx, card.ID); err != nil {
		return err
	}
	fmt.Println("Tarjeta borrada.")
	return nil
}

func printStatus(status wizard.Status) {
	switch status.Kind {
	case wizard.StatusError:
		fmt.Printf("! %s\n", status.Text)
	case wizard.StatusSuccess:
		fmt.Printf("✓ %s\n", status.Text)
	}
}

// prompt conserva el valor actual con Enter y lo borra con "-".
func prompt(reader *bufio.Reader, label, current string) (string, bool) {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, ok := readLine(reader)
	if !ok {
		return current, false
	}
	switch line {
	case "":
		return current, true
	case "-":
		return "", true
	}
	return line, true
}

// readLine devuelve false cuando la entrada terminó (EOF o error de lectura).
// Una última línea sin salto final todavía se entrega.
func readLine(reader *bufio.Reader) (string, bool) {
	line, err := reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", false
	}
	return strings.TrimSpace(line), true
}

type consoleNotifier struct{}

func (consoleNotifier) Success(msg string) { fmt.Printf("✓ %s\n", msg) }
func (consoleNotifier) Error(msg string)   { fmt.Printf("✗ %s\n", msg) }

type channelNavigator chan string

func (n channelNavigator) Navigate(path string) {
	select {
	case n <- path:
	default:
	}
}
