package quizbot

import (
	"context"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/repository"
)

// ParseMode - режим форматирования текста сообщения
type ParseMode string

const (
	ParseModeNone       ParseMode = ""
	ParseModeMarkdown   ParseMode = "Markdown"
	ParseModeMarkdownV2 ParseMode = "MarkdownV2"
)

// Области видимости таблицы очков
const (
	ExitScopeAll  = "all"
	ExitScopeSelf = "self"
)

// Типы событий для живой таблицы очков
const (
	EventScoreUpdate  = "SCORE_UPDATE"
	EventSessionStart = "SESSION_START"
	EventSessionEnd   = "SESSION_END"
)

// Config содержит настройки диалога
type Config struct {
	EntryCommands     []string
	ExitCommands      []string
	ExitScope         string
	PointsPerAnswer   int
	WelcomeText       string
	QuestionText      string
	GoodbyeText       string
	ScoresHeader      string
	RightText         string
	WrongText         string
	DescriptionMode   ParseMode
	QuestionParseMode ParseMode
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		EntryCommands:     []string{"iniciar", "start"},
		ExitCommands:      []string{"sair"},
		ExitScope:         ExitScopeAll,
		PointsPerAnswer:   10,
		WelcomeText:       "Welcome! To Rick and Morty Quiz Bot!",
		QuestionText:      "What is the status of this character?",
		GoodbyeText:       "Thank you to use Rick and Morty Quiz Bot!",
		ScoresHeader:      "SCORES:",
		RightText:         "Right!",
		WrongText:         "Wrong",
		DescriptionMode:   ParseModeMarkdown,
		QuestionParseMode: ParseModeMarkdownV2,
	}
}

// Messenger доставляет сообщения в чат
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, mode ParseMode) error
	SendPhoto(ctx context.Context, chatID int64, photo []byte) error
	// SendQuestion отправляет вопрос с одноразовой клавиатурой из options
	SendQuestion(ctx context.Context, chatID int64, text string, options []string, mode ParseMode) error
}

// DescriptionRenderer строит описание персонажа
type DescriptionRenderer interface {
	Render(character *entity.Character) (string, error)
}

// EventPublisher рассылает события подписчикам живой таблицы очков
type EventPublisher interface {
	BroadcastEvent(eventType string, data interface{}) error
}

// Dependencies содержит зависимости движка
type Dependencies struct {
	Players    repository.PlayerRepository
	Characters repository.CharacterProvider
	Renderer   DescriptionRenderer
	Messenger  Messenger
	Events     EventPublisher // может быть nil
}

// Update - входящее событие от транспорта
type Update struct {
	ChatID  int64
	User    entity.ChatUser
	Command string // команда без "/" и без упоминания бота, пусто для обычного текста
	Text    string
}

// ScoreEvent - данные события SCORE_UPDATE
type ScoreEvent struct {
	SessionID string `json:"session_id"`
	PlayerID  int64  `json:"player_id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Correct   bool   `json:"correct"`
	Answer    string `json:"answer"`
	Expected  string `json:"expected"`
}

// SessionEvent - данные событий SESSION_START / SESSION_END
type SessionEvent struct {
	SessionID string `json:"session_id"`
	PlayerID  int64  `json:"player_id"`
	ChatID    int64  `json:"chat_id"`
	Questions int    `json:"questions"`
}
