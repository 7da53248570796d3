package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/service/quizbot"
)

// photoFileName - имя файла, под которым картинка уходит в Telegram
const photoFileName = "character.jpeg"

// Sender - часть tgbotapi.BotAPI, нужная для отправки сообщений
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Messenger реализует quizbot.Messenger поверх Bot API
type Messenger struct {
	sender Sender
}

// NewMessenger создает отправителя сообщений
func NewMessenger(sender Sender) *Messenger {
	return &Messenger{sender: sender}
}

// SendText отправляет текстовое сообщение в чат
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string, mode quizbot.ParseMode) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = string(mode)
	return m.send(ctx, msg)
}

// SendPhoto загружает картинку в чат
func (m *Messenger) SendPhoto(ctx context.Context, chatID int64, photo []byte) error {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: photoFileName, Bytes: photo})
	return m.send(ctx, msg)
}

// SendQuestion отправляет вопрос с одноразовой уменьшенной клавиатурой в один ряд
func (m *Messenger) SendQuestion(ctx context.Context, chatID int64, text string, options []string, mode quizbot.ParseMode) error {
	buttons := make([]tgbotapi.KeyboardButton, len(options))
	for i, opt := range options {
		buttons[i] = tgbotapi.NewKeyboardButton(opt)
	}
	keyboard := tgbotapi.NewOneTimeReplyKeyboard(buttons)
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = string(mode)
	msg.ReplyMarkup = keyboard
	return m.send(ctx, msg)
}

// send проверяет контекст перед вызовом: Bot API клиент не принимает context
func (m *Messenger) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.sender.Send(c); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}
