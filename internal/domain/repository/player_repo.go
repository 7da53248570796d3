package repository

import (
	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
)

// PlayerRepository определяет методы реестра игроков.
// Реестр владеет существованием записей, изменения вносятся через Update.
type PlayerRepository interface {
	// FindByID возвращает копию записи или apperrors.ErrNotFound
	FindByID(id int64) (*entity.Player, error)
	// Register добавляет новую запись, apperrors.ErrConflict если id уже есть
	Register(player *entity.Player) error
	// Update сохраняет измененную копию записи обратно в реестр
	Update(player *entity.Player) error
	// List возвращает копии всех записей в порядке регистрации
	List() ([]*entity.Player, error)
	Count() int
}
