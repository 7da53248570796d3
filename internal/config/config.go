package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/service/quizbot"
)

// Режимы получения обновлений от Telegram
const (
	TelegramModePolling = "polling"
	TelegramModeWebhook = "webhook"
)

// Config хранит все настройки приложения
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Quiz     QuizConfig     `mapstructure:"quiz"`
	Provider ProviderConfig `mapstructure:"provider"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
}

// TelegramConfig содержит настройки подключения к Bot API
type TelegramConfig struct {
	Token         string `mapstructure:"token"`
	Mode          string `mapstructure:"mode"`           // "polling" или "webhook"
	WebhookURL    string `mapstructure:"webhook_url"`    // Публичный URL, который регистрируется в Telegram
	WebhookPath   string `mapstructure:"webhook_path"`   // Путь, на котором gin принимает обновления
	WebhookSecret string `mapstructure:"webhook_secret"` // Необязательный secret_token для проверки запросов
	PollTimeout   int    `mapstructure:"poll_timeout"`   // Таймаут long polling в секундах
	Debug         bool   `mapstructure:"debug"`
}

// QuizConfig содержит настройки диалога викторины
type QuizConfig struct {
	EntryCommands     []string `mapstructure:"entry_commands"`
	ExitCommands      []string `mapstructure:"exit_commands"`
	ExitScope         string   `mapstructure:"exit_scope"` // "all" - все игроки, "self" - только вызвавший
	TemplatePath      string   `mapstructure:"template_path"`
	PointsPerAnswer   int      `mapstructure:"points_per_answer"`
	WelcomeText       string   `mapstructure:"welcome_text"`
	QuestionText      string   `mapstructure:"question_text"`
	GoodbyeText       string   `mapstructure:"goodbye_text"`
	QuestionParseMode string   `mapstructure:"question_parse_mode"`
}

// ProviderConfig содержит настройки источника персонажей
type ProviderConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	CatalogSize int    `mapstructure:"catalog_size"` // 0 - спросить у API
	TimeoutSec  int    `mapstructure:"timeout_sec"`  // 0 - без таймаута
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт).
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// Enabled сообщает, сконфигурирован ли Redis вообще
func (r RedisConfig) Enabled() bool {
	return len(r.Addrs) > 0 || r.Addr != ""
}

// ServerConfig содержит настройки HTTP сервера (лидерборд, вебхук, /ws)
type ServerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`

	// AllowedOrigins используется и для CORS, и для проверки Origin в /ws.
	// Пустой список разрешает любой Origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("telegram.mode", TelegramModePolling)
	vip.SetDefault("telegram.webhook_path", "/telegram/webhook")
	vip.SetDefault("telegram.poll_timeout", 60)

	vip.SetDefault("quiz.entry_commands", []string{"iniciar", "start"})
	vip.SetDefault("quiz.exit_commands", []string{"sair"})
	vip.SetDefault("quiz.exit_scope", quizbot.ExitScopeAll)
	vip.SetDefault("quiz.template_path", "description.md")
	vip.SetDefault("quiz.points_per_answer", 10)
	vip.SetDefault("quiz.welcome_text", "Welcome! To Rick and Morty Quiz Bot!")
	vip.SetDefault("quiz.question_text", "What is the status of this character?")
	vip.SetDefault("quiz.goodbye_text", "Thank you to use Rick and Morty Quiz Bot!")
	vip.SetDefault("quiz.question_parse_mode", string(quizbot.ParseModeMarkdownV2))

	vip.SetDefault("provider.base_url", "https://rickandmortyapi.com/api")
	vip.SetDefault("provider.catalog_size", 0)
	vip.SetDefault("provider.timeout_sec", 0)

	vip.SetDefault("redis.mode", "single")

	vip.SetDefault("server.enabled", true)
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 10)
	vip.SetDefault("server.write_timeout", 10)
}

// Load загружает конфигурацию из .env, файла и переменных окружения
func Load(configPath string) (*Config, error) {
	// .env не обязателен, в контейнере переменные приходят снаружи
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Предупреждение: не удалось прочитать .env: %v", err)
	}

	vip := viper.New()
	setDefaults(vip)

	vip.BindEnv("telegram.token", "TELEGRAM_TOKEN")
	vip.BindEnv("telegram.mode", "TELEGRAM_MODE")
	vip.BindEnv("telegram.webhook_url", "TELEGRAM_WEBHOOK_URL")
	vip.BindEnv("telegram.webhook_secret", "TELEGRAM_WEBHOOK_SECRET")
	vip.BindEnv("telegram.debug", "TELEGRAM_DEBUG")

	vip.BindEnv("quiz.exit_scope", "QUIZ_EXIT_SCOPE")
	vip.BindEnv("quiz.template_path", "QUIZ_TEMPLATE_PATH")

	vip.BindEnv("provider.base_url", "PROVIDER_BASE_URL")
	vip.BindEnv("provider.catalog_size", "PROVIDER_CATALOG_SIZE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("server.enabled", "SERVER_ENABLED")
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.allowed_origins", "SERVER_ALLOWED_ORIGINS")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Telegram.Debug {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Telegram Mode: %s", cfg.Telegram.Mode)
		log.Printf("Entry Commands: %v", cfg.Quiz.EntryCommands)
		log.Printf("Exit Commands: %v", cfg.Quiz.ExitCommands)
		log.Printf("Exit Scope: %s", cfg.Quiz.ExitScope)
		log.Printf("Template Path: %s", cfg.Quiz.TemplatePath)
		log.Printf("Provider Base URL: %s", cfg.Provider.BaseURL)
		log.Printf("Redis Enabled: %t", cfg.Redis.Enabled())
		log.Printf("Server Port: %s (enabled: %t)", cfg.Server.Port, cfg.Server.Enabled)
		log.Printf("-----------------------------------------")
	}

	return &cfg, nil
}

// Validate проверяет обязательные параметры и допустимые значения
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram bot token is required (check TELEGRAM_TOKEN env var)")
	}

	c.Telegram.Mode = strings.ToLower(c.Telegram.Mode)
	switch c.Telegram.Mode {
	case TelegramModePolling:
	case TelegramModeWebhook:
		if c.Telegram.WebhookURL == "" {
			return fmt.Errorf("webhook mode requires telegram.webhook_url (check TELEGRAM_WEBHOOK_URL env var)")
		}
		if !c.Server.Enabled {
			return fmt.Errorf("webhook mode requires the HTTP server to be enabled")
		}
	default:
		return fmt.Errorf("unsupported telegram mode: %s", c.Telegram.Mode)
	}

	c.Quiz.ExitScope = strings.ToLower(c.Quiz.ExitScope)
	if c.Quiz.ExitScope != quizbot.ExitScopeAll && c.Quiz.ExitScope != quizbot.ExitScopeSelf {
		return fmt.Errorf("unsupported quiz.exit_scope: %s (expected %q or %q)", c.Quiz.ExitScope, quizbot.ExitScopeAll, quizbot.ExitScopeSelf)
	}
	switch quizbot.ParseMode(c.Quiz.QuestionParseMode) {
	case quizbot.ParseModeNone, quizbot.ParseModeMarkdown, quizbot.ParseModeMarkdownV2:
	default:
		return fmt.Errorf("unsupported quiz.question_parse_mode: %s (expected empty, %q or %q)",
			c.Quiz.QuestionParseMode, quizbot.ParseModeMarkdown, quizbot.ParseModeMarkdownV2)
	}
	if len(c.Quiz.EntryCommands) == 0 {
		return fmt.Errorf("at least one entry command is required")
	}
	if len(c.Quiz.ExitCommands) == 0 {
		return fmt.Errorf("at least one exit command is required")
	}
	if c.Quiz.PointsPerAnswer <= 0 {
		return fmt.Errorf("quiz.points_per_answer must be positive")
	}
	if c.Provider.CatalogSize < 0 {
		return fmt.Errorf("provider.catalog_size must not be negative")
	}

	return nil
}
