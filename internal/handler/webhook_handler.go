package handler

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// secretTokenHeader передается Telegram с каждым запросом вебхука
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateQueue принимает обновления, полученные вебхуком
type UpdateQueue interface {
	Enqueue(ctx context.Context, upd tgbotapi.Update) error
}

// WebhookHandler принимает обновления Telegram в режиме webhook
type WebhookHandler struct {
	queue       UpdateQueue
	secretToken string
}

// NewWebhookHandler создает обработчик вебхука.
// Пустой secretToken отключает проверку заголовка.
func NewWebhookHandler(queue UpdateQueue, secretToken string) *WebhookHandler {
	return &WebhookHandler{
		queue:       queue,
		secretToken: secretToken,
	}
}

// HandleUpdate обрабатывает POST от Telegram
func (h *WebhookHandler) HandleUpdate(c *gin.Context) {
	if h.secretToken != "" {
		got := c.GetHeader(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secretToken)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret token"})
			return
		}
	}

	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update payload"})
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), upd); err != nil {
		log.Printf("[WebhookHandler] Не удалось поставить обновление %d в очередь: %v", upd.UpdateID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "update queue unavailable"})
		return
	}

	c.Status(http.StatusOK)
}
