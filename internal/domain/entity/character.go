package entity

import "strings"

// CharacterStatus - статус персонажа, который угадывает игрок
type CharacterStatus string

const (
	StatusAlive   CharacterStatus = "Alive"
	StatusDead    CharacterStatus = "Dead"
	StatusUnknown CharacterStatus = "Unknown"
)

// AnswerOptions - фиксированный набор кнопок ответа, в порядке отображения
var AnswerOptions = []CharacterStatus{StatusAlive, StatusDead, StatusUnknown}

// ParseStatus приводит статус из API к закрытому набору значений.
// API отдает "unknown" в нижнем регистре, все неизвестное тоже считается Unknown.
func ParseStatus(raw string) CharacterStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "alive":
		return StatusAlive
	case "dead":
		return StatusDead
	default:
		return StatusUnknown
	}
}

// IsAnswerOption проверяет, что текст сообщения - ровно одна из кнопок ответа
func IsAnswerOption(text string) bool {
	for _, opt := range AnswerOptions {
		if text == string(opt) {
			return true
		}
	}
	return false
}

// Character представляет персонажа, полученного от API
type Character struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Status   CharacterStatus `json:"status"`
	Species  string          `json:"species"`
	Type     string          `json:"type"`
	Gender   string          `json:"gender"`
	ImageURL string          `json:"image"`
}

// IsCorrect сравнивает ответ игрока со статусом персонажа (точное совпадение строк)
func (c *Character) IsCorrect(answer string) bool {
	return string(c.Status) == answer
}
