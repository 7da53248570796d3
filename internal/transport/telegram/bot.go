package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/service/quizbot"
)

// failureText отправляется, когда вопрос не удалось построить
const failureText = "Sorry, something went wrong. Send your answer again to get a new character."

// webhookBuffer - размер очереди обновлений, принятых вебхуком
const webhookBuffer = 100

// ErrUpdateQueueFull возвращается Enqueue, когда очередь вебхука заполнена
var ErrUpdateQueueFull = errors.New("update queue is full")

// Dispatcher принимает события транспорта (реализуется quizbot.Engine)
type Dispatcher interface {
	Dispatch(ctx context.Context, upd quizbot.Update) error
}

// Config содержит настройки бота
type Config struct {
	Token      string
	Debug      bool
	Webhook    bool
	WebhookURL string
	// WebhookSecret передается Telegram как secret_token и проверяется обработчиком вебхука
	WebhookSecret string
	PollTimeout   int
}

// Bot получает обновления Telegram и по одному передает их движку викторины
type Bot struct {
	api        *tgbotapi.BotAPI
	sender     Sender
	dispatcher Dispatcher
	config     Config
	incoming   chan tgbotapi.Update
}

// NewBotAPI подключается к Bot API и проверяет токен
func NewBotAPI(cfg Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram bot api: %w", err)
	}
	api.Debug = cfg.Debug
	log.Printf("[TelegramBot] Авторизован как @%s", api.Self.UserName)
	return api, nil
}

// NewBot создает бота. api может быть nil в тестах, тогда Run недоступен.
func NewBot(api *tgbotapi.BotAPI, sender Sender, dispatcher Dispatcher, cfg Config) *Bot {
	return &Bot{
		api:        api,
		sender:     sender,
		dispatcher: dispatcher,
		config:     cfg,
		incoming:   make(chan tgbotapi.Update, webhookBuffer),
	}
}

// Enqueue ставит обновление, принятое вебхуком, в очередь обработки.
// Не блокируется: при заполненной очереди сразу возвращает ErrUpdateQueueFull,
// и Telegram повторит доставку после ответа 503.
func (b *Bot) Enqueue(ctx context.Context, upd tgbotapi.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case b.incoming <- upd:
		return nil
	default:
		return ErrUpdateQueueFull
	}
}

// Run обрабатывает обновления строго последовательно до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	if b.api == nil {
		return fmt.Errorf("telegram bot api is not initialized")
	}

	var updates <-chan tgbotapi.Update
	if b.config.Webhook {
		if err := b.registerWebhook(); err != nil {
			return err
		}
		log.Printf("[TelegramBot] Вебхук зарегистрирован: %s", b.config.WebhookURL)
		updates = b.incoming
	} else {
		// Вебхук и getUpdates взаимоисключающие
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Printf("[TelegramBot] WARNING: Не удалось удалить вебхук: %v", err)
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = b.config.PollTimeout
		updates = b.api.GetUpdatesChan(u)
		defer b.api.StopReceivingUpdates()
		log.Printf("[TelegramBot] Запущен long polling (timeout %ds)", u.Timeout)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("[TelegramBot] Остановка обработки обновлений")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) registerWebhook() error {
	if b.config.WebhookSecret == "" {
		wh, err := tgbotapi.NewWebhook(b.config.WebhookURL)
		if err != nil {
			return fmt.Errorf("invalid webhook url: %w", err)
		}
		if _, err := b.api.Request(wh); err != nil {
			return fmt.Errorf("failed to register webhook: %w", err)
		}
		return nil
	}

	// WebhookConfig библиотеки не знает про secret_token
	params := tgbotapi.Params{"url": b.config.WebhookURL, "secret_token": b.config.WebhookSecret}
	if _, err := b.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	return nil
}

// HandleUpdate передает одно обновление движку и обрабатывает ошибку
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	event, ok := ToQuizUpdate(upd)
	if !ok {
		return
	}

	err := b.dispatcher.Dispatch(ctx, event)
	switch {
	case err == nil:
	case errors.Is(err, quizbot.ErrUnroutable),
		errors.Is(err, quizbot.ErrNoActiveSession),
		errors.Is(err, quizbot.ErrSessionActive):
		if b.config.Debug {
			log.Printf("[TelegramBot] Сообщение от #%d в чате #%d пропущено: %v", event.User.ID, event.ChatID, err)
		}
	default:
		log.Printf("[TelegramBot] Ошибка обработки сообщения от #%d в чате #%d: %v", event.User.ID, event.ChatID, err)
		msg := tgbotapi.NewMessage(event.ChatID, failureText)
		if _, sendErr := b.sender.Send(msg); sendErr != nil {
			log.Printf("[TelegramBot] WARNING: Не удалось сообщить об ошибке в чат #%d: %v", event.ChatID, sendErr)
		}
	}
}

// ToQuizUpdate переводит обновление Telegram в событие движка.
// Обрабатываются только обычные сообщения с отправителем.
func ToQuizUpdate(upd tgbotapi.Update) (quizbot.Update, bool) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return quizbot.Update{}, false
	}

	event := quizbot.Update{
		ChatID: msg.Chat.ID,
		User: entity.ChatUser{
			ID:        msg.From.ID,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			Username:  msg.From.UserName,
		},
		Text: msg.Text,
	}
	if msg.IsCommand() {
		event.Command = msg.Command()
	}
	return event, true
}
