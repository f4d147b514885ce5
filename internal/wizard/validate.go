package wizard

import (
	"fmt"
	"strings"

	"bizcard/internal/domain"
)

// ValidationError indica qué paso falló y por qué.
type ValidationError struct {
	Step    int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %d: %s", e.Step, e.Message)
}

// validateDraftStep es puro: solo mira el borrador y el paso pedido.
func validateDraftStep(d Draft, step int) error {
	switch step {
	case StepUserDetails:
		if strings.TrimSpace(d.Name) == "" {
			return &ValidationError{Step: step, Field: "name", Message: "Name is required"}
		}
		if strings.TrimSpace(d.Title) == "" {
			return &ValidationError{Step: step, Field: "title", Message: "Title is required"}
		}
		if email := strings.TrimSpace(d.Email); email != "" && !domain.IsEmail(email) {
			return &ValidationError{Step: step, Field: "email", Message: "Email must look like name@example.com"}
		}
		return nil
	case StepAppearance:
		// Nada es obligatorio; vacío usa el default.
		if color := strings.TrimSpace(d.Color); color != "" && !domain.IsHexColor(color) {
			return &ValidationError{Step: step, Field: "color", Message: "Color must be a hex value like #6366f1"}
		}
		if _, ok := domain.ParseTemplate(d.Template); !ok {
			return &ValidationError{Step: step, Field: "template", Message: "Unknown template"}
		}
		return nil
	case StepReview:
		return nil
	default:
		return &ValidationError{Step: step, Message: "unknown step"}
	}
}

func validateAll(d Draft) error {
	for step := 0; step < numSteps; step++ {
		if err := validateDraftStep(d, step); err != nil {
			return err
		}
	}
	return nil
}
