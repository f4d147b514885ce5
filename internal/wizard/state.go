// Package wizard implementa el asistente de creación de tarjetas como máquina de estados.
package wizard

import (
	"strings"

	"bizcard/internal/domain"
)

// Phase es la variante activa del asistente. Solo una puede estar activa a la vez.
type Phase string

const (
	PhaseUserDetails Phase = "user_details"
	PhaseAppearance  Phase = "appearance"
	PhaseReview      Phase = "review"
	PhaseSubmitting  Phase = "submitting"
	PhaseCreated     Phase = "created"
	// PhaseFailed se comporta como review con un error adjunto; permite reintentar.
	PhaseFailed Phase = "failed"
)

const (
	StepUserDetails = 0
	StepAppearance  = 1
	StepReview      = 2
	numSteps        = 3
)

func phaseForStep(step int) Phase {
	switch step {
	case StepUserDetails:
		return PhaseUserDetails
	case StepAppearance:
		return PhaseAppearance
	default:
		return PhaseReview
	}
}

type StatusKind string

const (
	StatusNone    StatusKind = "none"
	StatusError   StatusKind = "error"
	StatusSuccess StatusKind = "success"
)

// Status es el mensaje en línea que acompaña al paso actual.
type Status struct {
	Kind StatusKind
	Text string
}

func noStatus() Status { return Status{Kind: StatusNone} }

// Draft son los datos sin guardar del asistente.
type Draft struct {
	Name     string
	Title    string
	Email    string
	Color    string
	Template string
	Phone    string
	Company  string
	// AcceptedTerms se muestra en review pero no bloquea el envío.
	AcceptedTerms bool
}

func NewDraft() Draft {
	return Draft{
		Color:    domain.DefaultColor,
		Template: string(domain.TemplateModern),
	}
}

func (d Draft) normalized() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Title = strings.TrimSpace(d.Title)
	d.Email = strings.TrimSpace(d.Email)
	d.Color = strings.TrimSpace(d.Color)
	d.Template = strings.TrimSpace(d.Template)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Company = strings.TrimSpace(d.Company)
	return d
}
