package queue

import "time"

const (
	KeyCardCreated  = "card.created"
	KeyCardUpdated  = "card.updated"
	KeyCardDeleted  = "card.deleted"
	KeyUserSignedUp = "user.signed_up"
)

type CardCreated struct {
	CardID    string    `json:"card_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Template  string    `json:"template"`
	ShareURL  string    `json:"share_url"`
	CreatedAt time.Time `json:"created_at"`
}

type CardUpdated struct {
	CardID    string    `json:"card_id"`
	UserID    string    `json:"user_id"`
	Fields    []string  `json:"fields"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CardDeleted struct {
	CardID    string    `json:"card_id"`
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

type UserSignedUp struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}
