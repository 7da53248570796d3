package repository

import (
	"context"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
)

// CharacterProvider определяет внешний источник персонажей
type CharacterProvider interface {
	// CatalogSize возвращает размер каталога персонажей
	CatalogSize(ctx context.Context) (int, error)
	// GetCharacter возвращает персонажа по индексу в [0, CatalogSize)
	GetCharacter(ctx context.Context, index int) (*entity.Character, error)
	// RandomCharacter выбирает персонажа равновероятно по всему каталогу
	RandomCharacter(ctx context.Context) (*entity.Character, error)
	// FetchImage скачивает картинку персонажа
	FetchImage(ctx context.Context, url string) ([]byte, error)
}
