package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bizcard/internal/domain"
	"bizcard/internal/metrics"
	"bizcard/internal/queue"
	"bizcard/internal/repository"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrCardNotFound  = errors.New("card not found")
	ErrDuplicateName = errors.New("duplicate card name")
	ErrMissingFields = errors.New("name and title are required")
	ErrInvalidCard   = errors.New("invalid card")
)

// CardService aplica las reglas de negocio de tarjetas.
// Toda operación recibe el id del usuario de la sesión; la propiedad se verifica
// en lecturas y en cada escritura.
type CardService struct {
	logger  *zap.Logger
	cards   repository.CardRepository
	cache   PublicCardCache
	events  queue.Publisher
	baseURL string
	now     func() time.Time
}

func NewCardService(logger *zap.Logger, cards repository.CardRepository, cache PublicCardCache, events queue.Publisher, baseURL string) *CardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewMemoryPublicCardCache(5 * time.Minute)
	}
	if events == nil {
		events = queue.NewNoop()
	}
	return &CardService{
		logger:  logger,
		cards:   cards,
		cache:   cache,
		events:  events,
		baseURL: baseURL,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type CardInput struct {
	Name     string
	Title    string
	Color    string
	Template string
	Email    string
	Phone    string
	Company  string
}

// CardPatch contiene solo los campos mutables; nil significa "sin cambio".
type CardPatch struct {
	Name     *string
	Title    *string
	Color    *string
	Template *string
}

// NameCheck es el resultado del validador de unicidad.
type NameCheck struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
}

func (s *CardService) CreateCard(ctx context.Context, ownerID string, input CardInput) (domain.BusinessCard, error) {
	if strings.TrimSpace(ownerID) == "" {
		return domain.BusinessCard{}, ErrUnauthorized
	}

	name := strings.TrimSpace(input.Name)
	title := strings.TrimSpace(input.Title)
	if name == "" || title == "" {
		return domain.BusinessCard{}, ErrMissingFields
	}

	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = domain.DefaultColor
	}
	if !domain.IsHexColor(color) {
		return domain.BusinessCard{}, fmt.Errorf("%w: color must be a hex value like #6366f1", ErrInvalidCard)
	}
	template, ok := domain.ParseTemplate(input.Template)
	if !ok {
		return domain.BusinessCard{}, fmt.Errorf("%w: unknown template %q", ErrInvalidCard, input.Template)
	}
	emailAddr := strings.TrimSpace(input.Email)
	if emailAddr != "" && !domain.IsEmail(emailAddr) {
		return domain.BusinessCard{}, fmt.Errorf("%w: email is not valid", ErrInvalidCard)
	}

	check, err := s.CheckNameUnique(ctx, ownerID, name, "")
	if err != nil {
		return domain.BusinessCard{}, err
	}
	if !check.IsValid {
		return domain.BusinessCard{}, fmt.Errorf("%w: %s", ErrDuplicateName, check.Error)
	}

	now := s.now()
	card := domain.BusinessCard{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Name:      name,
		Title:     title,
		Color:     color,
		Template:  template,
		Email:     emailAddr,
		Phone:     strings.TrimSpace(input.Phone),
		Company:   strings.TrimSpace(input.Company),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.BusinessCard{}, fmt.Errorf("%w: %s", ErrDuplicateName, duplicateNameMessage(name))
		}
		return domain.BusinessCard{}, err
	}
	card = s.withShareURL(card)
	metrics.CardsCreated.Inc()

	s.publish(ctx, queue.KeyCardCreated, queue.CardCreated{
		CardID:    card.ID,
		UserID:    card.UserID,
		Name:      card.Name,
		Template:  string(card.Template),
		ShareURL:  card.QRCode,
		CreatedAt: card.CreatedAt,
	})
	return card, nil
}

// GetCard devuelve el registro completo solo a su dueño.
func (s *CardService) GetCard(ctx context.Context, ownerID, id string) (domain.BusinessCard, error) {
	if strings.TrimSpace(ownerID) == "" {
		return domain.BusinessCard{}, ErrUnauthorized
	}
	return s.loadOwned(ctx, ownerID, id)
}

// GetPublicCard no requiere sesión y solo expone la proyección pública.
func (s *CardService) GetPublicCard(ctx context.Context, id string) (domain.PublicCard, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.PublicCard{}, ErrCardNotFound
	}

	cached, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.Warn("public card cache get failed", zap.Error(err), zap.String("card_id", id))
	}
	if ok {
		metrics.PublicCardCacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.PublicCardCacheHits.WithLabelValues("miss").Inc()

	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PublicCard{}, ErrCardNotFound
		}
		return domain.PublicCard{}, err
	}
	public := s.withShareURL(card).Public()
	if err := s.cache.Set(ctx, public); err != nil {
		s.logger.Warn("public card cache set failed", zap.Error(err), zap.String("card_id", id))
	}
	return public, nil
}

func (s *CardService) ListCards(ctx context.Context, ownerID string) ([]domain.BusinessCard, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrUnauthorized
	}
	cards, err := s.cards.ListByUserID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BusinessCard, 0, len(cards))
	for _, card := range cards {
		out = append(out, s.withShareURL(card))
	}
	return out, nil
}

func (s *CardService) UpdateCard(ctx context.Context, ownerID, id string, patch CardPatch) (domain.BusinessCard, error) {
	if strings.TrimSpace(ownerID) == "" {
		return domain.BusinessCard{}, ErrUnauthorized
	}
	card, err := s.loadOwned(ctx, ownerID, id)
	if err != nil {
		return domain.BusinessCard{}, err
	}

	var fields []string
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.BusinessCard{}, ErrMissingFields
		}
		if name != card.Name {
			check, err := s.CheckNameUnique(ctx, ownerID, name, card.ID)
			if err != nil {
				return domain.BusinessCard{}, err
			}
			if !check.IsValid {
				return domain.BusinessCard{}, fmt.Errorf("%w: %s", ErrDuplicateName, check.Error)
			}
		}
		card.Name = name
		fields = append(fields, "name")
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.BusinessCard{}, ErrMissingFields
		}
		card.Title = title
		fields = append(fields, "title")
	}
	if patch.Color != nil {
		color := strings.TrimSpace(*patch.Color)
		if !domain.IsHexColor(color) {
			return domain.BusinessCard{}, fmt.Errorf("%w: color must be a hex value like #6366f1", ErrInvalidCard)
		}
		card.Color = color
		fields = append(fields, "color")
	}
	if patch.Template != nil {
		template, ok := domain.ParseTemplate(*patch.Template)
		if !ok {
			return domain.BusinessCard{}, fmt.Errorf("%w: unknown template %q", ErrInvalidCard, *patch.Template)
		}
		card.Template = template
		fields = append(fields, "template")
	}
	if len(fields) == 0 {
		return domain.BusinessCard{}, fmt.Errorf("%w: no fields to update", ErrInvalidCard)
	}

	card.UpdatedAt = s.now()
	if err := s.cards.Update(ctx, card); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return domain.BusinessCard{}, fmt.Errorf("%w: %s", ErrDuplicateName, duplicateNameMessage(card.Name))
		case errors.Is(err, pgx.ErrNoRows):
			// Borrada o transferida entre la lectura y la escritura.
			return domain.BusinessCard{}, ErrCardNotFound
		default:
			return domain.BusinessCard{}, err
		}
	}
	s.invalidate(ctx, card.ID)

	s.publish(ctx, queue.KeyCardUpdated, queue.CardUpdated{
		CardID:    card.ID,
		UserID:    card.UserID,
		Fields:    fields,
		UpdatedAt: card.UpdatedAt,
	})
	return s.withShareURL(card), nil
}

func (s *CardService) DeleteCard(ctx context.Context, ownerID, id string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrUnauthorized
	}
	card, err := s.loadOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.cards.Delete(ctx, card.ID, ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCardNotFound
		}
		return err
	}
	s.invalidate(ctx, card.ID)

	s.publish(ctx, queue.KeyCardDeleted, queue.CardDeleted{
		CardID:    card.ID,
		UserID:    ownerID,
		DeletedAt: s.now(),
	})
	return nil
}

// CheckNameUnique comprueba que el usuario no tenga otra tarjeta con el mismo nombre exacto.
// excludeID permite editar una tarjeta sin chocar consigo misma.
func (s *CardService) CheckNameUnique(ctx context.Context, ownerID, name, excludeID string) (NameCheck, error) {
	if strings.TrimSpace(ownerID) == "" {
		return NameCheck{}, ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return NameCheck{IsValid: false, Error: "name is required"}, nil
	}
	_, err := s.cards.FindByName(ctx, ownerID, name, excludeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return NameCheck{IsValid: true}, nil
	}
	if err != nil {
		return NameCheck{}, err
	}
	return NameCheck{IsValid: false, Error: duplicateNameMessage(name)}, nil
}

func (s *CardService) loadOwned(ctx context.Context, ownerID, id string) (domain.BusinessCard, error) {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BusinessCard{}, ErrCardNotFound
		}
		return domain.BusinessCard{}, err
	}
	if !domain.IsOwner(card, ownerID) {
		return domain.BusinessCard{}, ErrForbidden
	}
	return s.withShareURL(card), nil
}

func (s *CardService) withShareURL(card domain.BusinessCard) domain.BusinessCard {
	card.QRCode = domain.ShareURL(s.baseURL, card.ID)
	return card
}

func (s *CardService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("public card cache invalidate failed", zap.Error(err), zap.String("card_id", id))
	}
}

func (s *CardService) publish(ctx context.Context, key string, event any) {
	if err := s.events.Publish(ctx, key, event); err != nil {
		s.logger.Warn("publish card event failed", zap.Error(err), zap.String("key", key))
	}
}

func duplicateNameMessage(name string) string {
	return fmt.Sprintf("you already have a card named %q", name)
}
