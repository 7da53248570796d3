package memory

import (
	"fmt"
	"sync"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
	apperrors "github.com/yourusername/rickandmorty-quiz-bot/internal/pkg/errors"
)

// PlayerRepo реализует repository.PlayerRepository в памяти процесса.
// Порядок записей - порядок первой регистрации.
type PlayerRepo struct {
	mu      sync.RWMutex
	players []*entity.Player
}

// NewPlayerRepo создает пустой реестр игроков
func NewPlayerRepo() *PlayerRepo {
	return &PlayerRepo{}
}

// find выполняет линейный поиск, вызывать под блокировкой
func (r *PlayerRepo) find(id int64) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// FindByID возвращает копию игрока по ID
func (r *PlayerRepo) FindByID(id int64) (*entity.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.find(id)
	if idx < 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.players[idx].Clone(), nil
}

// Register добавляет нового игрока в конец реестра
func (r *PlayerRepo) Register(player *entity.Player) error {
	if player == nil {
		return fmt.Errorf("%w: player is nil", apperrors.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.find(player.ID) >= 0 {
		return fmt.Errorf("%w: player %d already registered", apperrors.ErrConflict, player.ID)
	}
	r.players = append(r.players, player.Clone())
	return nil
}

// Update заменяет сохраненную запись копией переданной
func (r *PlayerRepo) Update(player *entity.Player) error {
	if player == nil {
		return fmt.Errorf("%w: player is nil", apperrors.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.find(player.ID)
	if idx < 0 {
		return apperrors.ErrNotFound
	}
	r.players[idx] = player.Clone()
	return nil
}

// List возвращает копии всех игроков в порядке регистрации
func (r *PlayerRepo) List() ([]*entity.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.Player, len(r.players))
	for i, p := range r.players {
		result[i] = p.Clone()
	}
	return result, nil
}

// Count возвращает количество зарегистрированных игроков
func (r *PlayerRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
