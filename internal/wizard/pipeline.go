package wizard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"bizcard/internal/apiclient"
	"bizcard/internal/domain"
)

type ErrorKind string

const (
	KindDuplicateName   ErrorKind = "duplicate_name"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindValidation      ErrorKind = "validation"
	KindServerError     ErrorKind = "server_error"
	KindNetworkError    ErrorKind = "network_error"
	KindCanceled        ErrorKind = "canceled"
)

const (
	msgUnauthenticated = "Please sign in to create a card"
	msgServerError     = "Something went wrong while creating your card. Please try again."
	msgNetworkError    = "Could not reach the server. Check your connection and try again."
	msgCanceled        = "Card creation was canceled"
	msgCreated         = "Card created successfully"

	// NavigationDelay deja ver la confirmación antes de navegar.
	NavigationDelay = time.Second
)

// SubmissionError es el fallo tipado del envío.
type SubmissionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// KindOf devuelve el tipo de fallo, o "" si err no es un *SubmissionError.
func KindOf(err error) ErrorKind {
	var sErr *SubmissionError
	if errors.As(err, &sErr) {
		return sErr.Kind
	}
	return ""
}

// CardCreator es la operación de creación del cliente de persistencia.
type CardCreator interface {
	CreateCard(ctx context.Context, req apiclient.CreateCardRequest) (domain.BusinessCard, error)
}

// Notifier muestra avisos transitorios.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type Navigator interface {
	Navigate(path string)
}

type Pipeline struct {
	logger    *zap.Logger
	creator   CardCreator
	notifier  Notifier
	navigator Navigator
	delay     time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewPipeline(logger *zap.Logger, creator CardCreator, notifier Notifier, navigator Navigator) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		logger:    logger,
		creator:   creator,
		notifier:  notifier,
		navigator: navigator,
		delay:     NavigationDelay,
	}
}

// Submit crea la tarjeta. Con éxito avisa y agenda la navegación al detalle;
// con error avisa y no navega.
func (p *Pipeline) Submit(ctx context.Context, draft Draft) (domain.BusinessCard, error) {
	req := apiclient.CreateCardRequest{
		Name:     draft.Name,
		Title:    draft.Title,
		Color:    draft.Color,
		Template: draft.Template,
		Email:    draft.Email,
		Phone:    draft.Phone,
		Company:  draft.Company,
	}

	card, err := p.creator.CreateCard(ctx, req)
	if err != nil {
		sErr := classify(ctx, err)
		if sErr.Kind != KindCanceled {
			p.logger.Warn("card submission failed", zap.String("kind", string(sErr.Kind)), zap.Error(err))
			if p.notifier != nil {
				p.notifier.Error(sErr.Message)
			}
		}
		return domain.BusinessCard{}, sErr
	}

	if p.notifier != nil {
		p.notifier.Success(msgCreated)
	}
	p.scheduleNavigation("/card/" + card.ID)
	return card, nil
}

func (p *Pipeline) scheduleNavigation(path string) {
	if p.navigator == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.delay, func() {
		p.navigator.Navigate(path)
	})
}

// CancelNavigation detiene la navegación pendiente. Devuelve false si no había ninguna.
func (p *Pipeline) CancelNavigation() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer == nil {
		return false
	}
	stopped := p.timer.Stop()
	p.timer = nil
	return stopped
}

func classify(ctx context.Context, err error) *SubmissionError {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &SubmissionError{Kind: KindCanceled, Message: msgCanceled, Err: err}
	}

	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		return &SubmissionError{Kind: KindNetworkError, Message: msgNetworkError, Err: err}
	}

	switch apiErr.StatusCode {
	case http.StatusConflict:
		msg := apiErr.Message
		if msg == "" {
			msg = "You already have a card with this name"
		}
		return &SubmissionError{Kind: KindDuplicateName, Message: msg, Err: err}
	case http.StatusUnauthorized:
		return &SubmissionError{Kind: KindUnauthenticated, Message: msgUnauthenticated, Err: err}
	case http.StatusBadRequest:
		msg := apiErr.Message
		if msg == "" {
			msg = "The card details are not valid"
		}
		return &SubmissionError{Kind: KindValidation, Message: msg, Err: err}
	default:
		return &SubmissionError{Kind: KindServerError, Message: msgServerError, Err: err}
	}
}
