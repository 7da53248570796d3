package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Hub хранит подключенных клиентов и рассылает им сообщения
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	broadcast chan []byte
	metrics   *HubMetrics
}

// NewHub создает хаб с буферизированными каналами
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan []byte, 256),
		metrics:   NewHubMetrics(),
	}
}

// Run рассылает сообщения до отмены ctx, затем закрывает всех клиентов
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
				h.metrics.DecrementActiveConnections()
			}
			h.mu.Unlock()
			return

		case message := <-h.broadcast:
			var sent int64
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
					sent++
				default:
					// Медленный клиент отключается
					log.Printf("[WebSocket] WARNING: Буфер клиента %s переполнен, отключаем", c.ConnectionID)
					close(c.send)
					delete(h.clients, c)
					h.metrics.DecrementActiveConnections()
					h.metrics.AddSlowClientDropped()
				}
			}
			h.metrics.AddMessageSent(sent)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
		h.metrics.DecrementActiveConnections()
	}
}

// Register добавляет клиента
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.metrics.IncrementTotalConnections()
	h.mu.Unlock()
	log.Printf("[WebSocket] Подписчик подключен (ConnID: %s), всего: %d", c.ConnectionID, total)
}

// Unregister удаляет клиента, повторный вызов безопасен
func (h *Hub) Unregister(c *Client) {
	h.remove(c)
}

// BroadcastJSON сериализует v и ставит его в очередь рассылки всем клиентам
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
		return nil
	default:
		h.metrics.AddEventDropped()
		return ErrBroadcastQueueFull
	}
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetMetrics возвращает счетчики хаба
func (h *Hub) GetMetrics() map[string]interface{} {
	return h.metrics.GetMetrics()
}
