package quizbot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/repository/memory"
)

// ============================================================================
// Моки для Engine
// ============================================================================

// MockCharacterProvider реализует repository.CharacterProvider
type MockCharacterProvider struct {
	mock.Mock
}

func (m *MockCharacterProvider) CatalogSize(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockCharacterProvider) GetCharacter(ctx context.Context, index int) (*entity.Character, error) {
	args := m.Called(ctx, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Character), args.Error(1)
}

func (m *MockCharacterProvider) RandomCharacter(ctx context.Context) (*entity.Character, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Character), args.Error(1)
}

func (m *MockCharacterProvider) FetchImage(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// sentMessage - одно исходящее сообщение, записанное fakeMessenger
type sentMessage struct {
	Kind    string // "text", "photo", "question"
	ChatID  int64
	Text    string
	Mode    ParseMode
	Options []string
}

// fakeMessenger записывает все исходящие сообщения
type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeMessenger) SendText(ctx context.Context, chatID int64, text string, mode ParseMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Kind: "text", ChatID: chatID, Text: text, Mode: mode})
	return nil
}

func (f *fakeMessenger) SendPhoto(ctx context.Context, chatID int64, photo []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Kind: "photo", ChatID: chatID, Text: string(photo)})
	return nil
}

func (f *fakeMessenger) SendQuestion(ctx context.Context, chatID int64, text string, options []string, mode ParseMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Kind: "question", ChatID: chatID, Text: text, Mode: mode, Options: options})
	return nil
}

// texts возвращает тексты отправленных текстовых сообщений
func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.Kind == "text" {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

// stubRenderer рендерит описание без файла шаблона
type stubRenderer struct {
	err error
}

func (r stubRenderer) Render(character *entity.Character) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("*%s* (%s)", character.Name, character.Species), nil
}

// MockEventPublisher реализует EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) BroadcastEvent(eventType string, data interface{}) error {
	args := m.Called(eventType, data)
	return args.Error(0)
}

type engineFixture struct {
	engine    *Engine
	players   *memory.PlayerRepo
	provider  *MockCharacterProvider
	messenger *fakeMessenger
}

func newEngineFixture(t *testing.T, cfg *Config) *engineFixture {
	t.Helper()
	f := &engineFixture{
		players:   memory.NewPlayerRepo(),
		provider:  new(MockCharacterProvider),
		messenger: &fakeMessenger{},
	}
	f.provider.On("FetchImage", mock.Anything, mock.Anything).Return([]byte("img"), nil).Maybe()
	f.engine = NewEngine(cfg, &Dependencies{
		Players:    f.players,
		Characters: f.provider,
		Renderer:   stubRenderer{},
		Messenger:  f.messenger,
	})
	return f
}

// nextCharacter ставит в очередь персонажа, которого вернет следующий RandomCharacter
func (f *engineFixture) nextCharacter(id int, status entity.CharacterStatus) *entity.Character {
	ch := &entity.Character{
		ID:       id,
		Name:     fmt.Sprintf("Character %d", id),
		Status:   status,
		Species:  "Human",
		Gender:   "Male",
		ImageURL: fmt.Sprintf("https://example.test/%d.jpeg", id),
	}
	f.provider.On("RandomCharacter", mock.Anything).Return(ch, nil).Once()
	return ch
}

func (f *engineFixture) score(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.players.FindByID(id)
	require.NoError(t, err)
	return p.Score
}

var (
	userA = entity.ChatUser{ID: 1, FirstName: "A"}
	morty = entity.ChatUser{ID: 2, FirstName: "Morty"}
)

const chatA = int64(100)

// ============================================================================
// Тесты входа
// ============================================================================

func TestEngine_HandleEntry_SendsWelcomeAndQuestion(t *testing.T) {
	f := newEngineFixture(t, nil)
	ch := f.nextCharacter(7, entity.StatusDead)

	err := f.engine.HandleEntry(context.Background(), chatA, userA)
	require.NoError(t, err)

	require.Len(t, f.messenger.sent, 4)
	assert.Equal(t, sentMessage{Kind: "text", ChatID: chatA, Text: "Welcome! To Rick and Morty Quiz Bot!"}, f.messenger.sent[0])
	assert.Equal(t, "photo", f.messenger.sent[1].Kind)
	assert.Equal(t, "img", f.messenger.sent[1].Text)
	assert.Equal(t, sentMessage{Kind: "text", ChatID: chatA, Text: "*Character 7* (Human)", Mode: ParseModeMarkdown}, f.messenger.sent[2])
	assert.Equal(t, sentMessage{
		Kind:    "question",
		ChatID:  chatA,
		Text:    "What is the status of this character?",
		Mode:    ParseModeMarkdownV2,
		Options: []string{"Alive", "Dead", "Unknown"},
	}, f.messenger.sent[3])

	player, err := f.players.FindByID(userA.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, player.Score)
	assert.Equal(t, "A", player.Name)
	assert.Equal(t, ch, player.Character)
	assert.Equal(t, 1, f.engine.ActiveSessions())
	f.provider.AssertCalled(t, "FetchImage", mock.Anything, ch.ImageURL)
}

func TestEngine_HandleEntry_WhileActiveIsIgnored(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.nextCharacter(1, entity.StatusAlive)
	require.NoError(t, f.engine.HandleEntry(context.Background(), chatA, userA))
	f.messenger.reset()

	err := f.engine.HandleEntry(context.Background(), chatA, userA)
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Empty(t, f.messenger.sent)
}

func TestEngine_HandleEntry_ProviderFailure(t *testing.T) {
	f := newEngineFixture(t, nil)
	providerErr := errors.New("provider down")
	f.provider.On("RandomCharacter", mock.Anything).Return(nil, providerErr).Once()

	err := f.engine.HandleEntry(context.Background(), chatA, userA)
	assert.ErrorIs(t, err, providerErr)
	assert.Equal(t, 0, f.engine.ActiveSessions())
	assert.Equal(t, 0, f.players.Count())

	// Повторный вход после сбоя возможен
	f.nextCharacter(2, entity.StatusAlive)
	require.NoError(t, f.engine.HandleEntry(context.Background(), chatA, userA))
	assert.Equal(t, 1, f.engine.ActiveSessions())
}

func TestEngine_HandleEntry_TemplateFailureAbortsAfterPhoto(t *testing.T) {
	f := newEngineFixture(t, nil)
	renderErr := errors.New("template missing")
	f.engine.deps.Renderer = stubRenderer{err: renderErr}
	f.nextCharacter(3, entity.StatusAlive)

	err := f.engine.HandleEntry(context.Background(), chatA, userA)
	assert.ErrorIs(t, err, renderErr)

	// Приветствие и фото уже ушли, описания и вопроса нет
	require.Len(t, f.messenger.sent, 2)
	assert.Equal(t, "photo", f.messenger.sent[1].Kind)
	assert.Equal(t, 0, f.engine.ActiveSessions())
}

// ============================================================================
// Тесты ответов
// ============================================================================

func TestEngine_HandleAnswer_Scenario(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	f.nextCharacter(1, entity.StatusDead)
	require.NoError(t, f.engine.HandleEntry(ctx, chatA, userA))
	assert.Equal(t, 0, f.score(t, userA.ID))

	// Верный ответ: +10
	f.messenger.reset()
	f.nextCharacter(2, entity.StatusDead)
	require.NoError(t, f.engine.HandleAnswer(ctx, chatA, userA, "Dead"))
	assert.Equal(t, "Right!", f.messenger.texts()[0])
	assert.Equal(t, 10, f.score(t, userA.ID))

	// Неверный ответ: 10 - 10 = 0
	f.messenger.reset()
	f.nextCharacter(3, entity.StatusDead)
	require.NoError(t, f.engine.HandleAnswer(ctx, chatA, userA, "Alive"))
	assert.Equal(t, "Wrong", f.messenger.texts()[0])
	assert.Equal(t, 0, f.score(t, userA.ID))

	// Снова неверный: счет остается 0
	f.messenger.reset()
	f.nextCharacter(4, entity.StatusAlive)
	require.NoError(t, f.engine.HandleAnswer(ctx, chatA, userA, "Unknown"))
	assert.Equal(t, "Wrong", f.messenger.texts()[0])
	assert.Equal(t, 0, f.score(t, userA.ID))

	// Каждый ответ сопровождается новым вопросом
	last := f.messenger.sent[len(f.messenger.sent)-1]
	assert.Equal(t, "question", last.Kind)

	player, err := f.players.FindByID(userA.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, player.Character.ID)
}

func TestEngine_HandleAnswer_UnknownStatus(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	f.nextCharacter(1, entity.StatusUnknown)
	require.NoError(t, f.engine.HandleEntry(ctx, chatA, userA))

	f.nextCharacter(2, entity.StatusAlive)
	require.NoError(t, f.engine.HandleAnswer(ctx, chatA, userA, "Unknown"))
	assert.Equal(t, 10, f.score(t, userA.ID))
}

func TestEngine_HandleAnswer_ScoreNeverNegative(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(1, 2))
	statuses := entity.AnswerOptions

	f.nextCharacter(0, statuses[rng.IntN(3)])
	require.NoError(t, f.engine.HandleEntry(ctx, chatA, userA))

	for i := 1; i <= 200; i++ {
		before := f.score(t, userA.ID)
		f.nextCharacter(i, statuses[rng.IntN(3)])
		answer := string(statuses[rng.IntN(3)])

		f.messenger.reset()
		require.NoError(t, f.engine.HandleAnswer(ctx, chatA, userA, answer))

		after := f.score(t, userA.ID)
		require.GreaterOrEqual(t, after, 0)
		if f.messenger.texts()[0] == "Right!" {
			assert.Equal(t, before+10, after)
		} else if before == 0 {
			assert.Equal(t, 0, after)
		} else {
			assert.Equal(t, before-10, after)
		}
	}
}

func TestEngine_HandleAnswer_WithoutSession(t *testing.T) {
	f := newEngineFixture(t, nil)

	err := f.engine.HandleAnswer(context.Background(), chatA, userA, "Alive")
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.Empty(t, f.messenger.sent)
	assert.Equal(t, 0, f.players.Count())
	f.provider.AssertNotCalled(t, "RandomCharacter", mock.Anything)
}

func TestEngine_HandleAnswer_FailedQuestionIsNotScoredTwice(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	f.nextCharacter(1, entity.StatusAlive)
	require.NoError(t, f.engine.HandleEntry(ctx, chatA, userA))

	// Ответ засчитан, но следующий вопрос построить не удалось
	f.provider.On("RandomCharacter", mock.Anything).Return(nil, errors.New("timeout")).Once()
	err := f.engine.HandleAnswer(ctx, chatA, userA, "Alive")
	require.Error(t, err)
	assert.Equal(t, 10, f.score(t, userA.ID))

	// Следующее нажатие только повторяет вопрос, счет не меняется
	f.messenger.reset()
	f.nextCharacter(2, entity.StatusDead)
	require.NoError(t, f.engine.HandleAnswer(ctx, chatA, userA, "Alive"))
	assert.Equal(t, 10, f.score(t, userA.ID))
	assert.NotContains(t, f.messenger.texts(), "Right!")
	assert.NotContains(t, f.messenger.texts(), "Wrong")

	f.nextCharacter(3, entity.StatusDead)
	require.NoError(t, f.engine.HandleAnswer(ctx, chatA, userA, "Dead"))
	assert.Equal(t, 20, f.score(t, userA.ID))
}

// ============================================================================
// Тесты выхода
// ============================================================================

func TestEngine_HandleExit_AllScope(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	f.nextCharacter(1, entity.StatusAlive)
	require.NoError(t, f.engine.HandleEntry(ctx, chatA, userA))

	f.nextCharacter(2, entity.StatusAlive)
	require.NoError(t, f.engine.HandleEntry(ctx, 200, morty))
	mortyRecord, err := f.players.FindByID(morty.ID)
	require.NoError(t, err)
	mortyRecord.Score = 30
	require.NoError(t, f.players.Update(mortyRecord))

	f.messenger.reset()
	require.NoError(t, f.engine.HandleExit(ctx, chatA, userA))

	assert.Equal(t, []string{
		"SCORES:",
		"0 >>> A\n30 >>> Morty\n",
		"Thank you to use Rick and Morty Quiz Bot!",
	}, f.messenger.texts())
	for _, m := range f.messenger.sent {
		assert.Equal(t, chatA, m.ChatID)
	}

	// Диалог A завершен, Morty продолжает играть
	assert.Equal(t, 1, f.engine.ActiveSessions())
	err = f.engine.HandleAnswer(ctx, chatA, userA, "Alive")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestEngine_HandleExit_SelfScope(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExitScope = ExitScopeSelf
	f := newEngineFixture(t, cfg)
	ctx := context.Background()

	f.nextCharacter(1, entity.StatusAlive)
	require.NoError(t, f.engine.HandleEntry(ctx, 200, morty))
	f.nextCharacter(2, entity.StatusAlive)
	require.NoError(t, f.engine.HandleEntry(ctx, chatA, userA))

	f.messenger.reset()
	require.NoError(t, f.engine.HandleExit(ctx, chatA, userA))
	assert.Equal(t, "0 >>> A\n", f.messenger.texts()[1])
}

func TestEngine_HandleExit_WithoutSession(t *testing.T) {
	f := newEngineFixture(t, nil)

	err := f.engine.HandleExit(context.Background(), chatA, userA)
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.Empty(t, f.messenger.sent)
}

func TestEngine_RegistryHasNoDuplicates(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()
	users := []entity.ChatUser{userA, morty, userA, userA, morty}

	for i, u := range users {
		f.nextCharacter(i, entity.StatusAlive)
		require.NoError(t, f.engine.HandleEntry(ctx, chatA, u))
		require.NoError(t, f.engine.HandleExit(ctx, chatA, u))
	}

	players, err := f.players.List()
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, userA.ID, players[0].ID)
	assert.Equal(t, morty.ID, players[1].ID)
}

func TestEngine_Scoreboard_RegistrationOrder(t *testing.T) {
	f := newEngineFixture(t, nil)
	require.NoError(t, f.players.Register(&entity.Player{ID: 3, Name: "Summer", Score: 50}))
	require.NoError(t, f.players.Register(&entity.Player{ID: 1, Name: "Rick", Score: 0}))
	require.NoError(t, f.players.Register(&entity.Player{ID: 2, Name: "Morty", Score: 20}))

	board, err := f.engine.Scoreboard(ExitScopeAll, 1)
	require.NoError(t, err)
	assert.Equal(t, "50 >>> Summer\n0 >>> Rick\n20 >>> Morty\n", board)

	board, err = f.engine.Scoreboard(ExitScopeSelf, 2)
	require.NoError(t, err)
	assert.Equal(t, "20 >>> Morty\n", board)
}

// ============================================================================
// Тесты маршрутизации
// ============================================================================

func TestEngine_Dispatch_Routing(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		upd  Update
		want error
	}{
		{"capitalized command", Update{ChatID: chatA, User: userA, Command: "Start"}, ErrUnroutable},
		{"unknown command", Update{ChatID: chatA, User: userA, Command: "help"}, ErrUnroutable},
		{"lowercase answer", Update{ChatID: chatA, User: userA, Text: "alive"}, ErrUnroutable},
		{"answer with spaces", Update{ChatID: chatA, User: userA, Text: "Alive "}, ErrUnroutable},
		{"answer as part of text", Update{ChatID: chatA, User: userA, Text: "Dead or Alive"}, ErrUnroutable},
		{"answer without session", Update{ChatID: chatA, User: userA, Text: "Dead"}, ErrNoActiveSession},
		{"each button is an answer", Update{ChatID: chatA, User: userA, Text: "Alive"}, ErrNoActiveSession},
		{"unknown button is an answer", Update{ChatID: chatA, User: userA, Text: "Unknown"}, ErrNoActiveSession},
		{"exit without session", Update{ChatID: chatA, User: userA, Command: "sair"}, ErrNoActiveSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, f.engine.Dispatch(ctx, tt.upd), tt.want)
		})
	}

	// Оба алиаса входа работают
	for i, cmd := range []string{"iniciar", "start"} {
		f.nextCharacter(i, entity.StatusAlive)
		require.NoError(t, f.engine.Dispatch(ctx, Update{ChatID: chatA, User: userA, Command: cmd}))
		require.NoError(t, f.engine.Dispatch(ctx, Update{ChatID: chatA, User: userA, Command: "sair"}))
	}

	f.nextCharacter(10, entity.StatusDead)
	require.NoError(t, f.engine.Dispatch(ctx, Update{ChatID: chatA, User: userA, Command: "start"}))
	f.nextCharacter(11, entity.StatusDead)
	require.NoError(t, f.engine.Dispatch(ctx, Update{ChatID: chatA, User: userA, Text: "Dead"}))
	assert.Equal(t, 10, f.score(t, userA.ID))
}

func TestEngine_PublishesEvents(t *testing.T) {
	f := newEngineFixture(t, nil)
	events := new(MockEventPublisher)
	f.engine.deps.Events = events
	ctx := context.Background()

	events.On("BroadcastEvent", EventSessionStart, mock.AnythingOfType("quizbot.SessionEvent")).Return(nil).Once()
	events.On("BroadcastEvent", EventScoreUpdate, mock.MatchedBy(func(e ScoreEvent) bool {
		return e.PlayerID == userA.ID && e.Score == 10 && e.Correct && e.Expected == "Dead"
	})).Return(nil).Once()
	// Ошибка публикации не прерывает выход
	events.On("BroadcastEvent", EventSessionEnd, mock.MatchedBy(func(e SessionEvent) bool {
		return e.PlayerID == userA.ID && e.Questions == 2
	})).Return(errors.New("no subscribers")).Once()

	f.nextCharacter(1, entity.StatusDead)
	require.NoError(t, f.engine.HandleEntry(ctx, chatA, userA))
	f.nextCharacter(2, entity.StatusAlive)
	require.NoError(t, f.engine.HandleAnswer(ctx, chatA, userA, "Dead"))
	require.NoError(t, f.engine.HandleExit(ctx, chatA, userA))

	events.AssertExpectations(t)
}

func TestEngine_ConcurrentAnswersDoNotLoseUpdates(t *testing.T) {
	f := newEngineFixture(t, nil)
	ctx := context.Background()

	// Все персонажи живые, все ответы верные
	f.provider.On("RandomCharacter", mock.Anything).Return(&entity.Character{ID: 1, Name: "Rick", Status: entity.StatusAlive}, nil)
	require.NoError(t, f.engine.HandleEntry(ctx, chatA, userA))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.engine.HandleAnswer(ctx, chatA, userA, "Alive"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, f.score(t, userA.ID))
}
