package wizard

import (
	"context"
	"errors"
	"sync"

	"bizcard/internal/domain"
	"bizcard/internal/preview"
)

var (
	// ErrBusy se devuelve mientras hay un envío en curso.
	ErrBusy           = errors.New("wizard is submitting")
	ErrAlreadyCreated = errors.New("card already created, reset to start again")
	ErrClosed         = errors.New("wizard closed")
	// ErrStale marca un resultado que llegó después de Reset o Close y fue descartado.
	ErrStale = errors.New("submission result discarded")
)

// Submitter envía el borrador. *Pipeline lo implementa.
type Submitter interface {
	Submit(ctx context.Context, draft Draft) (domain.BusinessCard, error)
}

type Wizard struct {
	mu        sync.Mutex
	submitter Submitter

	phase   Phase
	step    int
	draft   Draft
	status  Status
	created *domain.BusinessCard
	closed  bool

	// gen cambia con cada Reset/Close/Submit para descartar resultados viejos.
	gen    uint64
	cancel context.CancelFunc
}

func New(submitter Submitter) *Wizard {
	return &Wizard{
		submitter: submitter,
		phase:     PhaseUserDetails,
		draft:     NewDraft(),
		status:    noStatus(),
	}
}

func (w *Wizard) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

func (w *Wizard) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Wizard) IsSubmitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase == PhaseSubmitting
}

// Created expone la tarjeta creada apenas llega, sin esperar la navegación.
func (w *Wizard) Created() (domain.BusinessCard, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.created == nil {
		return domain.BusinessCard{}, false
	}
	return *w.created, true
}

// Preview devuelve la vista en vivo del borrador, o de la tarjeta ya creada.
func (w *Wizard) Preview() preview.CardViewModel {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.created != nil {
		return preview.FromCard(*w.created)
	}
	d := w.draft
	return preview.New(preview.Fields{
		Name:     d.Name,
		Title:    d.Title,
		Color:    d.Color,
		Template: d.Template,
		Email:    d.Email,
		Phone:    d.Phone,
		Company:  d.Company,
	}, "")
}

// checkMutable debe llamarse con el lock tomado.
func (w *Wizard) checkMutable() error {
	switch {
	case w.closed:
		return ErrClosed
	case w.phase == PhaseSubmitting:
		return ErrBusy
	case w.phase == PhaseCreated:
		return ErrAlreadyCreated
	}
	return nil
}

// Update aplica fn sobre el borrador. La validación ya pasada no se invalida.
func (w *Wizard) Update(fn func(*Draft)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkMutable(); err != nil {
		return err
	}
	fn(&w.draft)
	return nil
}

// ValidateStep valida un paso sobre el borrador actual.
func (w *Wizard) ValidateStep(step int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return validateDraftStep(w.draft, step)
}

// GoToNextStep avanza solo si el paso actual es válido.
// En review no hay paso siguiente; el avance es Submit.
func (w *Wizard) GoToNextStep() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkMutable(); err != nil {
		return false, err
	}

	if err := validateDraftStep(w.draft, w.step); err != nil {
		w.status = errorStatus(err)
		return false, nil
	}
	if w.step >= numSteps-1 {
		return false, nil
	}
	w.step++
	w.phase = phaseForStep(w.step)
	w.status = noStatus()
	return true, nil
}

func (w *Wizard) GoToPrevStep() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkMutable(); err != nil {
		return false, err
	}

	w.status = noStatus()
	if w.step == 0 {
		w.phase = PhaseUserDetails
		return false, nil
	}
	w.step--
	w.phase = phaseForStep(w.step)
	return true, nil
}

// Submit revalida todos los pasos y, si pasan, envía el borrador.
// Un fallo de validación no toca la red ni cambia de fase.
func (w *Wizard) Submit(ctx context.Context) (domain.BusinessCard, error) {
	w.mu.Lock()
	if err := w.checkMutable(); err != nil {
		w.mu.Unlock()
		return domain.BusinessCard{}, err
	}
	if err := validateAll(w.draft); err != nil {
		w.status = errorStatus(err)
		w.mu.Unlock()
		return domain.BusinessCard{}, err
	}

	w.gen++
	gen := w.gen
	subCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.phase = PhaseSubmitting
	w.status = noStatus()
	draft := w.draft.normalized()
	w.mu.Unlock()

	card, err := w.submitter.Submit(subCtx, draft)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		return domain.BusinessCard{}, ErrStale
	}
	w.cancel = nil

	if err != nil {
		w.phase = PhaseFailed
		w.step = StepReview
		w.created = nil
		w.status = errorStatus(err)
		return domain.BusinessCard{}, err
	}
	w.phase = PhaseCreated
	w.created = &card
	w.status = Status{Kind: StatusSuccess, Text: "Card created"}
	return card, nil
}

// Reset vuelve al borrador inicial y descarta la tarjeta creada y cualquier envío en curso.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.abortLocked()
	w.phase = PhaseUserDetails
	w.step = StepUserDetails
	w.draft = NewDraft()
	w.status = noStatus()
	w.created = nil
}

// Close aborta el envío en curso. Después de Close el asistente no acepta cambios.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.abortLocked()
	w.closed = true
	if w.phase == PhaseSubmitting {
		w.phase = PhaseReview
	}
}

type navigationCanceler interface {
	CancelNavigation() bool
}

func (w *Wizard) abortLocked() {
	w.gen++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if nc, ok := w.submitter.(navigationCanceler); ok {
		nc.CancelNavigation()
	}
}

func errorStatus(err error) Status {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return Status{Kind: StatusError, Text: vErr.Message}
	}
	var sErr *SubmissionError
	if errors.As(err, &sErr) {
		return Status{Kind: StatusError, Text: sErr.Message}
	}
	return Status{Kind: StatusError, Text: err.Error()}
}
