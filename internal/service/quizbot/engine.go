package quizbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
	apperrors "github.com/yourusername/rickandmorty-quiz-bot/internal/pkg/errors"
)

// Engine управляет диалогом викторины: вход, цикл вопрос/ответ, выход с таблицей очков
type Engine struct {
	config   *Config
	deps     *Dependencies
	sessions *sessionStore

	entry map[string]bool
	exit  map[string]bool
}

// NewEngine создает движок викторины
func NewEngine(config *Config, deps *Dependencies) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	e := &Engine{
		config:   config,
		deps:     deps,
		sessions: newSessionStore(),
		entry:    make(map[string]bool, len(config.EntryCommands)),
		exit:     make(map[string]bool, len(config.ExitCommands)),
	}
	for _, c := range config.EntryCommands {
		e.entry[c] = true
	}
	for _, c := range config.ExitCommands {
		e.exit[c] = true
	}
	return e
}

// ActiveSessions возвращает количество начатых диалогов
func (e *Engine) ActiveSessions() int {
	return e.sessions.count()
}

// Dispatch направляет событие транспорта в нужный обработчик.
// Команды сравниваются с учетом регистра, ответы - по полному тексту.
func (e *Engine) Dispatch(ctx context.Context, upd Update) error {
	switch {
	case upd.Command != "" && e.entry[upd.Command]:
		return e.HandleEntry(ctx, upd.ChatID, upd.User)
	case upd.Command != "" && e.exit[upd.Command]:
		return e.HandleExit(ctx, upd.ChatID, upd.User)
	case upd.Command == "" && entity.IsAnswerOption(upd.Text):
		return e.HandleAnswer(ctx, upd.ChatID, upd.User, upd.Text)
	default:
		return ErrUnroutable
	}
}

// HandleEntry приветствует пользователя и задает первый вопрос
func (e *Engine) HandleEntry(ctx context.Context, chatID int64, user entity.ChatUser) error {
	unlock := e.sessions.lockUser(user.ID)
	defer unlock()

	key := entity.SessionKey{ChatID: chatID, UserID: user.ID}
	if e.sessions.get(key) != nil {
		return ErrSessionActive
	}

	if err := e.deps.Messenger.SendText(ctx, chatID, e.config.WelcomeText, ParseModeNone); err != nil {
		return fmt.Errorf("failed to send welcome: %w", err)
	}

	session := entity.NewSession(key)
	if err := e.askQuestion(ctx, session, user); err != nil {
		// Диалог не начинается, пользователь может повторить команду входа
		return err
	}
	e.sessions.put(session)

	log.Printf("[QuizEngine] Сессия %s начата: пользователь #%d, чат #%d", session.ID, user.ID, chatID)
	e.publish(EventSessionStart, SessionEvent{
		SessionID: session.ID.String(),
		PlayerID:  user.ID,
		ChatID:    chatID,
		Questions: session.Questions,
	})
	return nil
}

// HandleAnswer проверяет ответ, меняет счет и задает следующий вопрос
func (e *Engine) HandleAnswer(ctx context.Context, chatID int64, user entity.ChatUser, answer string) error {
	unlock := e.sessions.lockUser(user.ID)
	defer unlock()

	key := entity.SessionKey{ChatID: chatID, UserID: user.ID}
	session := e.sessions.get(key)
	if session == nil {
		return ErrNoActiveSession
	}

	// nil - прошлый ответ уже засчитан, а новый вопрос не был построен
	if character := session.Consume(); character != nil {
		if err := e.scoreAnswer(ctx, session, user, character, answer); err != nil {
			return err
		}
	}

	return e.askQuestion(ctx, session, user)
}

func (e *Engine) scoreAnswer(ctx context.Context, session *entity.Session, user entity.ChatUser, character *entity.Character, answer string) error {
	player, err := e.deps.Players.FindByID(user.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: player #%d is not registered", ErrNoActiveSession, user.ID)
		}
		return fmt.Errorf("failed to load player #%d: %w", user.ID, err)
	}

	correct := character.IsCorrect(answer)
	player.ApplyAnswer(correct, e.config.PointsPerAnswer)
	if err := e.deps.Players.Update(player); err != nil {
		return fmt.Errorf("failed to save score for player #%d: %w", user.ID, err)
	}

	log.Printf("[QuizEngine] Сессия %s: пользователь #%d ответил %q на персонажа #%d (%s), верно: %t, счет: %d",
		session.ID, user.ID, answer, character.ID, character.Status, correct, player.Score)

	e.publish(EventScoreUpdate, ScoreEvent{
		SessionID: session.ID.String(),
		PlayerID:  player.ID,
		Name:      player.Name,
		Score:     player.Score,
		Correct:   correct,
		Answer:    answer,
		Expected:  string(character.Status),
	})

	reply := e.config.WrongText
	if correct {
		reply = e.config.RightText
	}
	if err := e.deps.Messenger.SendText(ctx, session.Key.ChatID, reply, ParseModeNone); err != nil {
		return fmt.Errorf("failed to send answer verdict: %w", err)
	}
	return nil
}

// askQuestion выбирает случайного персонажа, привязывает его к игроку
// и отправляет фото, описание и вопрос с кнопками.
// Персонаж привязывается к сессии только после отправки вопроса.
func (e *Engine) askQuestion(ctx context.Context, session *entity.Session, user entity.ChatUser) error {
	chatID := session.Key.ChatID

	character, err := e.deps.Characters.RandomCharacter(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch character: %w", err)
	}

	if err := e.bindCharacter(user, character); err != nil {
		return err
	}

	image, err := e.deps.Characters.FetchImage(ctx, character.ImageURL)
	if err != nil {
		return fmt.Errorf("failed to fetch image of character #%d: %w", character.ID, err)
	}
	if err := e.deps.Messenger.SendPhoto(ctx, chatID, image); err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}

	description, err := e.deps.Renderer.Render(character)
	if err != nil {
		return fmt.Errorf("failed to render description: %w", err)
	}
	if err := e.deps.Messenger.SendText(ctx, chatID, description, e.config.DescriptionMode); err != nil {
		return fmt.Errorf("failed to send description: %w", err)
	}

	options := make([]string, len(entity.AnswerOptions))
	for i, opt := range entity.AnswerOptions {
		options[i] = string(opt)
	}
	if err := e.deps.Messenger.SendQuestion(ctx, chatID, e.config.QuestionText, options, e.config.QuestionParseMode); err != nil {
		return fmt.Errorf("failed to send question: %w", err)
	}

	session.Bind(character)
	return nil
}

// bindCharacter регистрирует игрока при первом вопросе или заменяет его персонажа
func (e *Engine) bindCharacter(user entity.ChatUser, character *entity.Character) error {
	player, err := e.deps.Players.FindByID(user.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		player = entity.NewPlayer(user.ID, user.FullName(), character)
		if err := e.deps.Players.Register(player); err != nil {
			return fmt.Errorf("failed to register player #%d: %w", user.ID, err)
		}
		log.Printf("[QuizEngine] Зарегистрирован игрок #%d (%s)", player.ID, player.Name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load player #%d: %w", user.ID, err)
	}

	player.Character = character
	if err := e.deps.Players.Update(player); err != nil {
		return fmt.Errorf("failed to bind character to player #%d: %w", user.ID, err)
	}
	return nil
}

// HandleExit отправляет таблицу очков и завершает диалог
func (e *Engine) HandleExit(ctx context.Context, chatID int64, user entity.ChatUser) error {
	unlock := e.sessions.lockUser(user.ID)
	defer unlock()

	key := entity.SessionKey{ChatID: chatID, UserID: user.ID}
	session := e.sessions.get(key)
	if session == nil {
		return ErrNoActiveSession
	}

	board, err := e.Scoreboard(e.config.ExitScope, user.ID)
	if err != nil {
		return err
	}

	if err := e.deps.Messenger.SendText(ctx, chatID, e.config.ScoresHeader, ParseModeNone); err != nil {
		return fmt.Errorf("failed to send scores header: %w", err)
	}
	// Telegram не принимает пустые сообщения
	if board != "" {
		if err := e.deps.Messenger.SendText(ctx, chatID, board, ParseModeNone); err != nil {
			return fmt.Errorf("failed to send scores: %w", err)
		}
	}
	if err := e.deps.Messenger.SendText(ctx, chatID, e.config.GoodbyeText, ParseModeNone); err != nil {
		return fmt.Errorf("failed to send goodbye: %w", err)
	}

	e.sessions.remove(key)
	log.Printf("[QuizEngine] Сессия %s завершена: пользователь #%d, вопросов: %d", session.ID, user.ID, session.Questions)
	e.publish(EventSessionEnd, SessionEvent{
		SessionID: session.ID.String(),
		PlayerID:  user.ID,
		ChatID:    chatID,
		Questions: session.Questions,
	})
	return nil
}

// Scoreboard строит строки "<score> >>> <name>" в порядке регистрации.
// scope "self" оставляет только строку вызвавшего пользователя.
func (e *Engine) Scoreboard(scope string, callerID int64) (string, error) {
	players, err := e.deps.Players.List()
	if err != nil {
		return "", fmt.Errorf("failed to list players: %w", err)
	}

	var sb strings.Builder
	for _, p := range players {
		if scope == ExitScopeSelf && p.ID != callerID {
			continue
		}
		sb.WriteString(p.ScoreLine())
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (e *Engine) publish(eventType string, data interface{}) {
	if e.deps.Events == nil {
		return
	}
	if err := e.deps.Events.BroadcastEvent(eventType, data); err != nil {
		log.Printf("[QuizEngine] WARNING: Не удалось отправить событие %s: %v", eventType, err)
	}
}
