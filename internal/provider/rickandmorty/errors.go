package rickandmorty

import "errors"

var (
	// ErrProvider - API персонажей недоступно или индекс вне каталога
	ErrProvider = errors.New("character provider error")
	// ErrNetwork - не удалось скачать картинку персонажа
	ErrNetwork = errors.New("image fetch failed")
)
