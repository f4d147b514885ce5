package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bizcard/internal/domain"
)

// CardRepository define el contrato de persistencia para tarjetas.
// La URL de compartir no se guarda: se deriva del id al leer.
type CardRepository interface {
	Create(ctx context.Context, card domain.BusinessCard) error
	GetByID(ctx context.Context, id string) (domain.BusinessCard, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.BusinessCard, error)
	FindByName(ctx context.Context, userID, name, excludeID string) (*domain.BusinessCard, error)
	Update(ctx context.Context, card domain.BusinessCard) error
	Delete(ctx context.Context, id, userID string) error
}

type PgCardRepository struct {
	pool *pgxpool.Pool
}

func NewPgCardRepository(pool *pgxpool.Pool) *PgCardRepository {
	return &PgCardRepository{pool: pool}
}

const cardColumns = `id, user_id, name, title, color, template, email, phone, company, created_at, updated_at`

func (r *PgCardRepository) Create(ctx context.Context, card domain.BusinessCard) error {
	const query = `
		INSERT INTO business_cards (id, user_id, name, title, color, template, email, phone, company, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		card.ID,
		card.UserID,
		card.Name,
		card.Title,
		card.Color,
		string(card.Template),
		card.Email,
		card.Phone,
		card.Company,
		card.CreatedAt,
		card.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *PgCardRepository) GetByID(ctx context.Context, id string) (domain.BusinessCard, error) {
	query := `SELECT ` + cardColumns + ` FROM business_cards WHERE id = $1`
	return scanCard(r.pool.QueryRow(ctx, query, id))
}

func (r *PgCardRepository) ListByUserID(ctx context.Context, userID string) ([]domain.BusinessCard, error) {
	query := `SELECT ` + cardColumns + ` FROM business_cards WHERE user_id = $1 ORDER BY created_at DESC, name ASC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := make([]domain.BusinessCard, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// FindByName busca por nombre exacto (sensible a mayúsculas) dentro de las tarjetas del usuario.
// excludeID vacío no excluye nada.
func (r *PgCardRepository) FindByName(ctx context.Context, userID, name, excludeID string) (*domain.BusinessCard, error) {
	query := `SELECT ` + cardColumns + ` FROM business_cards WHERE user_id = $1 AND name = $2 AND id <> $3 LIMIT 1`
	card, err := scanCard(r.pool.QueryRow(ctx, query, userID, name, excludeID))
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *PgCardRepository) Update(ctx context.Context, card domain.BusinessCard) error {
	const query = `
		UPDATE business_cards
		SET name = $1, title = $2, color = $3, template = $4, updated_at = $5
		WHERE id = $6 AND user_id = $7
	`
	tag, err := r.pool.Exec(ctx, query,
		card.Name,
		card.Title,
		card.Color,
		string(card.Template),
		card.UpdatedAt,
		card.ID,
		card.UserID,
	)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgCardRepository) Delete(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM business_cards WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanCard(row pgx.Row) (domain.BusinessCard, error) {
	var (
		c        domain.BusinessCard
		template string
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Title,
		&c.Color,
		&template,
		&c.Email,
		&c.Phone,
		&c.Company,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.BusinessCard{}, err
	}
	c.Template = domain.Template(template)
	return c, nil
}
