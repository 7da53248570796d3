package quizbot

import (
	"sync"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
)

// sessionStore хранит активные диалоги и блокировки пользователей
type sessionStore struct {
	mu       sync.Mutex
	sessions map[entity.SessionKey]*entity.Session
	locks    map[int64]*sync.Mutex
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[entity.SessionKey]*entity.Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// lockUser сериализует обработку событий одного пользователя.
// Возвращает функцию разблокировки.
func (s *sessionStore) lockUser(userID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *sessionStore) get(key entity.SessionKey) *entity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[key]
}

func (s *sessionStore) put(session *entity.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Key] = session
}

func (s *sessionStore) remove(key entity.SessionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

func (s *sessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
