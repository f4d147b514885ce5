package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bizcard/internal/preview"
	"bizcard/internal/service"
)

// PublicCardHandler sirve la proyección pública sin autenticación.
type PublicCardHandler struct {
	logger *zap.Logger
	cards  *service.CardService
	qrSize int
}

func NewPublicCardHandler(logger *zap.Logger, cards *service.CardService, qrSize int) *PublicCardHandler {
	return &PublicCardHandler{
		logger: logger,
		cards:  cards,
		qrSize: preview.ClampQRSize(qrSize),
	}
}

// GetPublicCard maneja GET /public-cards/:id.
func (h *PublicCardHandler) GetPublicCard(c *gin.Context) {
	card, err := h.cards.GetPublicCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		h.logger.Error("get public card failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch card"})
		return
	}
	c.JSON(http.StatusOK, card)
}

// GetQRCode maneja GET /public-cards/:id/qr.png y devuelve el QR de la URL pública.
func (h *PublicCardHandler) GetQRCode(c *gin.Context) {
	card, err := h.cards.GetPublicCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		h.logger.Error("get public card for qr failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch card"})
		return
	}

	size := h.qrSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must be a number"})
			return
		}
		size = preview.ClampQRSize(n)
	}

	png, err := preview.RenderQR(card.QRCode, size)
	if err != nil {
		h.logger.Error("render qr failed", zap.Error(err), zap.String("card_id", card.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate qr code"})
		return
	}
	c.Header("Content-Disposition", "inline; filename=qr.png")
	c.Data(http.StatusOK, "image/png", png)
}
