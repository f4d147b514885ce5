package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bizcard/internal/service"
)

// CardHandler expone el CRUD de tarjetas del usuario autenticado.
type CardHandler struct {
	logger *zap.Logger
	cards  *service.CardService
}

func NewCardHandler(logger *zap.Logger, cards *service.CardService) *CardHandler {
	return &CardHandler{
		logger: logger,
		cards:  cards,
	}
}

type createCardRequest struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Color    string `json:"color"`
	Template string `json:"template"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
}

type updateCardRequest struct {
	Name     *string `json:"name"`
	Title    *string `json:"title"`
	Color    *string `json:"color"`
	Template *string `json:"template"`
}

// CreateCard maneja POST /cards.
func (h *CardHandler) CreateCard(c *gin.Context) {
	userID, ok := RequireSession(c)
	if !ok {
		return
	}

	var req createCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create card request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	card, err := h.cards.CreateCard(c.Request.Context(), userID, service.CardInput{
		Name:     req.Name,
		Title:    req.Title,
		Color:    req.Color,
		Template: req.Template,
		Email:    req.Email,
		Phone:    req.Phone,
		Company:  req.Company,
	})
	if err != nil {
		h.writeError(c, "create card", err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

// ListCards maneja GET /cards.
func (h *CardHandler) ListCards(c *gin.Context) {
	userID, ok := RequireSession(c)
	if !ok {
		return
	}
	cards, err := h.cards.ListCards(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, "list cards", err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

// GetCard maneja GET /cards/:id.
func (h *CardHandler) GetCard(c *gin.Context) {
	userID, ok := RequireSession(c)
	if !ok {
		return
	}
	card, err := h.cards.GetCard(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, "get card", err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// UpdateCard maneja PUT /cards/:id. Solo se aceptan campos mutables.
func (h *CardHandler) UpdateCard(c *gin.Context) {
	userID, ok := RequireSession(c)
	if !ok {
		return
	}

	var req updateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update card request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	card, err := h.cards.UpdateCard(c.Request.Context(), userID, c.Param("id"), service.CardPatch{
		Name:     req.Name,
		Title:    req.Title,
		Color:    req.Color,
		Template: req.Template,
	})
	if err != nil {
		h.writeError(c, "update card", err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// DeleteCard maneja DELETE /cards/:id.
func (h *CardHandler) DeleteCard(c *gin.Context) {
	userID, ok := RequireSession(c)
	if !ok {
		return
	}
	if err := h.cards.DeleteCard(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeError(c, "delete card", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "card deleted"})
}

// CheckName maneja GET /cards/check-name?name=&exclude_id=.
func (h *CardHandler) CheckName(c *gin.Context) {
	userID, ok := RequireSession(c)
	if !ok {
		return
	}
	check, err := h.cards.CheckNameUnique(c.Request.Context(), userID, c.Query("name"), c.Query("exclude_id"))
	if err != nil {
		h.writeError(c, "check card name", err)
		return
	}
	c.JSON(http.StatusOK, check)
}

func (h *CardHandler) writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
	case errors.Is(err, service.ErrDuplicateName):
		c.JSON(http.StatusConflict, gin.H{"error": serviceMessage(err)})
	case errors.Is(err, service.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCard):
		c.JSON(http.StatusBadRequest, gin.H{"error": serviceMessage(err)})
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not " + op})
	}
}

// serviceMessage quita el prefijo del error centinela y deja el detalle legible.
func serviceMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
