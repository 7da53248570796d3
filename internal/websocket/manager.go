package websocket

import (
	"errors"
)

// ErrBroadcastQueueFull - очередь рассылки переполнена, событие отброшено
var ErrBroadcastQueueFull = errors.New("broadcast queue is full")

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Broadcaster - то, что Manager требует от хаба
type Broadcaster interface {
	BroadcastJSON(v interface{}) error
	ClientCount() int
}

// Manager публикует события викторины подписчикам
type Manager struct {
	hub Broadcaster
}

// NewManager создает менеджер WebSocket
func NewManager(hub Broadcaster) *Manager {
	return &Manager{hub: hub}
}

// BroadcastEvent отправляет событие всем подписчикам.
// Без подписчиков событие не сериализуется.
func (m *Manager) BroadcastEvent(eventType string, data interface{}) error {
	if m.hub.ClientCount() == 0 {
		return nil
	}
	return m.hub.BroadcastJSON(Event{Type: eventType, Data: data})
}

// ClientCount возвращает количество подписчиков
func (m *Manager) ClientCount() int {
	return m.hub.ClientCount()
}
