package domain

import (
	"regexp"
	"strings"
	"time"
)

// Template identifica el diseño visual de una tarjeta.
type Template string

const (
	TemplateModern     Template = "modern"
	TemplateClassic    Template = "classic"
	TemplateMinimalist Template = "minimalist"
)

const DefaultColor = "#6366f1"

// Valid indica si el template pertenece al conjunto soportado.
func (t Template) Valid() bool {
	switch t {
	case TemplateModern, TemplateClassic, TemplateMinimalist:
		return true
	default:
		return false
	}
}

// ParseTemplate normaliza un template; vacío equivale a modern.
func ParseTemplate(raw string) (Template, bool) {
	t := Template(strings.ToLower(strings.TrimSpace(raw)))
	if t == "" {
		return TemplateModern, true
	}
	return t, t.Valid()
}

// BusinessCard es el registro persistido de una tarjeta digital.
type BusinessCard struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	Template  Template  `json:"template"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	QRCode    string    `json:"qr_code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicCard es la proyección compartible sin autenticación.
// No incluye dueño ni datos de contacto.
type PublicCard struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	Template  Template  `json:"template"`
	CreatedAt time.Time `json:"created_at"`
	QRCode    string    `json:"qr_code"`
}

func (c BusinessCard) Public() PublicCard {
	return PublicCard{
		ID:        c.ID,
		Name:      c.Name,
		Title:     c.Title,
		Color:     c.Color,
		Template:  c.Template,
		CreatedAt: c.CreatedAt,
		QRCode:    c.QRCode,
	}
}

// IsOwner es el guardia de propiedad: sin sesión nunca hay acceso.
func IsOwner(card BusinessCard, sessionUserID string) bool {
	if strings.TrimSpace(sessionUserID) == "" {
		return false
	}
	return card.UserID == sessionUserID
}

// ShareURL deriva la URL pública a partir del id, nunca del nombre.
func ShareURL(baseURL, cardID string) string {
	return strings.TrimRight(baseURL, "/") + "/card/" + cardID
}

var (
	hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func IsHexColor(s string) bool {
	return hexColorRe.MatchString(s)
}

// IsEmail valida la forma simple local@dominio.tld.
func IsEmail(s string) bool {
	return emailRe.MatchString(s)
}
