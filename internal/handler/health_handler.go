package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionCounter сообщает число открытых диалогов
type SessionCounter interface {
	ActiveSessions() int
}

// PlayerCounter сообщает размер реестра игроков
type PlayerCounter interface {
	Count() int
}

// HubStats сообщает состояние ленты событий
type HubStats interface {
	ClientCount() int
	GetMetrics() map[string]interface{}
}

// HealthHandler отдает состояние процесса
type HealthHandler struct {
	sessions SessionCounter
	players  PlayerCounter
	hub      HubStats
}

// NewHealthHandler создает обработчик /health
func NewHealthHandler(sessions SessionCounter, players PlayerCounter, hub HubStats) *HealthHandler {
	return &HealthHandler{
		sessions: sessions,
		players:  players,
		hub:      hub,
	}
}

// Health обрабатывает GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"active_sessions": h.sessions.ActiveSessions(),
		"players":         h.players.Count(),
		"ws_clients":      h.hub.ClientCount(),
		"ws_metrics":      h.hub.GetMetrics(),
	})
}
