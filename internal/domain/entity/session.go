package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionKey идентифицирует диалог: пара (чат, пользователь)
type SessionKey struct {
	ChatID int64
	UserID int64
}

// Session - активный диалог викторины. Диалог существует, пока он
// хранится у движка; команда выхода его удаляет.
// Character == nil означает, что предыдущий персонаж уже засчитан,
// а новый вопрос не удалось построить.
type Session struct {
	ID        uuid.UUID
	Key       SessionKey
	Character *Character
	Questions int
	StartedAt time.Time
}

// NewSession создает диалог, который ждет первого вопроса
func NewSession(key SessionKey) *Session {
	return &Session{
		ID:        uuid.New(),
		Key:       key,
		StartedAt: time.Now(),
	}
}

// Bind привязывает к диалогу новый вопрос
func (s *Session) Bind(character *Character) {
	s.Character = character
	s.Questions++
}

// Consume забирает текущего персонажа для проверки ответа и отвязывает его
func (s *Session) Consume() *Character {
	ch := s.Character
	s.Character = nil
	return ch
}
