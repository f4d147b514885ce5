// Package preview arma el modelo de vista de una tarjeta, tanto de un borrador
// sin guardar como de un registro persistido.
package preview

import (
	"strconv"
	"strings"
	"unicode"

	"bizcard/internal/domain"
)

type Layout string

const (
	LayoutSplit    Layout = "split"
	LayoutCentered Layout = "centered"
	LayoutPlain    Layout = "plain"
)

const (
	lightText = "#ffffff"
	darkText  = "#111827"
)

// Fields son los datos editables que alimentan la vista previa.
type Fields struct {
	Name     string
	Title    string
	Color    string
	Template string
	Email    string
	Phone    string
	Company  string
}

type CardViewModel struct {
	Name      string          `json:"name"`
	Title     string          `json:"title"`
	Color     string          `json:"color"`
	TextColor string          `json:"text_color"`
	Template  domain.Template `json:"template"`
	Layout    Layout          `json:"layout"`
	Initials  string          `json:"initials"`
	ShareURL  string          `json:"share_url,omitempty"`
	Email     string          `json:"email,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Company   string          `json:"company,omitempty"`
}

// New construye la vista de un borrador. Valores inválidos caen a los defaults
// para que la vista previa nunca quede vacía mientras se edita.
func New(f Fields, shareURL string) CardViewModel {
	color := strings.TrimSpace(f.Color)
	if !domain.IsHexColor(color) {
		color = domain.DefaultColor
	}
	template, ok := domain.ParseTemplate(f.Template)
	if !ok {
		template = domain.TemplateModern
	}
	name := strings.TrimSpace(f.Name)

	return CardViewModel{
		Name:      name,
		Title:     strings.TrimSpace(f.Title),
		Color:     color,
		TextColor: TextColor(color),
		Template:  template,
		Layout:    LayoutFor(template),
		Initials:  Initials(name),
		ShareURL:  shareURL,
		Email:     strings.TrimSpace(f.Email),
		Phone:     strings.TrimSpace(f.Phone),
		Company:   strings.TrimSpace(f.Company),
	}
}

func FromCard(card domain.BusinessCard) CardViewModel {
	return New(Fields{
		Name:     card.Name,
		Title:    card.Title,
		Color:    card.Color,
		Template: string(card.Template),
		Email:    card.Email,
		Phone:    card.Phone,
		Company:  card.Company,
	}, card.QRCode)
}

func FromPublic(card domain.PublicCard) CardViewModel {
	return New(Fields{
		Name:     card.Name,
		Title:    card.Title,
		Color:    card.Color,
		Template: string(card.Template),
	}, card.QRCode)
}

func LayoutFor(t domain.Template) Layout {
	switch t {
	case domain.TemplateClassic:
		return LayoutCentered
	case domain.TemplateMinimalist:
		return LayoutPlain
	default:
		return LayoutSplit
	}
}

// TextColor elige texto claro u oscuro según el brillo percibido (YIQ) del fondo.
func TextColor(background string) string {
	r, g, b, ok := parseHex(background)
	if !ok {
		return lightText
	}
	yiq := (299*int(r) + 587*int(g) + 114*int(b)) / 1000
	if yiq >= 128 {
		return darkText
	}
	return lightText
}

// Initials toma la primera letra de las dos primeras palabras.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				out = append(out, unicode.ToUpper(r))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

func parseHex(color string) (uint8, uint8, uint8, bool) {
	if !domain.IsHexColor(color) {
		return 0, 0, 0, false
	}
	hex := color[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}
