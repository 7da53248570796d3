package websocket

import (
	"sync"
	"time"
)

// HubMetrics хранит счетчики ленты событий
type HubMetrics struct {
	totalConnections   int64 // Подключений за все время
	activeConnections  int64
	messagesSent       int64 // Доставлено в буферы клиентов
	slowClientsDropped int64 // Отключено из-за переполненного буфера
	eventsDropped      int64 // Отброшено из-за переполненной очереди рассылки
	startTime          time.Time

	mu sync.RWMutex
}

// NewHubMetrics создает новый экземпляр метрик Hub
func NewHubMetrics() *HubMetrics {
	return &HubMetrics{
		startTime: time.Now(),
	}
}

// IncrementTotalConnections увеличивает счетчик общего количества подключений
func (m *HubMetrics) IncrementTotalConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalConnections++
	m.activeConnections++
}

// DecrementActiveConnections уменьшает счетчик активных подключений
func (m *HubMetrics) DecrementActiveConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeConnections > 0 {
		m.activeConnections--
	}
}

// AddMessageSent увеличивает счетчик отправленных сообщений
func (m *HubMetrics) AddMessageSent(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesSent += count
}

func (m *HubMetrics) AddSlowClientDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slowClientsDropped++
}

func (m *HubMetrics) AddEventDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsDropped++
}

// GetMetrics возвращает метрики в формате карты для JSON-ответа
func (m *HubMetrics) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"total_connections":    m.totalConnections,
		"active_connections":   m.activeConnections,
		"messages_sent":        m.messagesSent,
		"slow_clients_dropped": m.slowClientsDropped,
		"events_dropped":       m.eventsDropped,
		"uptime_seconds":       time.Since(m.startTime).Seconds(),
		"start_time":           m.startTime.Format(time.RFC3339),
	}
}
