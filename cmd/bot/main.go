package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/config"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/repository"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/handler"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/middleware"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/provider/rickandmorty"
	memoryRepo "github.com/yourusername/rickandmorty-quiz-bot/internal/repository/memory"
	redisRepo "github.com/yourusername/rickandmorty-quiz-bot/internal/repository/redis"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/service"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/service/quizbot"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/transport/telegram"
	ws "github.com/yourusername/rickandmorty-quiz-bot/internal/websocket"
	"github.com/yourusername/rickandmorty-quiz-bot/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Кэш ответов API: Redis, если настроен, иначе память процесса
	memoryCache := memoryRepo.NewCacheRepo()
	var cacheRepo repository.CacheRepository = memoryCache
	var counter middleware.WindowCounter = memoryCache
	if cfg.Redis.Enabled() {
		redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		redisCache, err := redisRepo.NewCacheRepo(redisClient, "rmquiz:")
		if err != nil {
			log.Printf("Failed to initialize CacheRepo: %v", err)
			os.Exit(1)
		}
		cacheRepo = redisCache
		counter = redisCache
		log.Println("Successfully connected to Redis")
	} else {
		log.Println("Redis не настроен, используется кэш в памяти")
	}

	characters := rickandmorty.NewClient(rickandmorty.Config{
		BaseURL:     cfg.Provider.BaseURL,
		CatalogSize: cfg.Provider.CatalogSize,
		Timeout:     time.Duration(cfg.Provider.TimeoutSec) * time.Second,
	}, cacheRepo)

	playerRepo := memoryRepo.NewPlayerRepo()
	descriptionService := service.NewDescriptionService(cfg.Quiz.TemplatePath)
	leaderboardService := service.NewLeaderboardService(playerRepo)

	botConfig := telegram.Config{
		Token:         cfg.Telegram.Token,
		Debug:         cfg.Telegram.Debug,
		Webhook:       cfg.Telegram.Mode == config.TelegramModeWebhook,
		WebhookURL:    cfg.Telegram.WebhookURL,
		WebhookSecret: cfg.Telegram.WebhookSecret,
		PollTimeout:   cfg.Telegram.PollTimeout,
	}
	api, err := telegram.NewBotAPI(botConfig)
	if err != nil {
		log.Printf("Failed to initialize Telegram bot: %v", err)
		os.Exit(1)
	}

	limiter := middleware.NewRateLimiter(counter)
	wsHub := ws.NewHub()
	wsManager := ws.NewManager(wsHub)

	engine := quizbot.NewEngine(quizConfig(cfg.Quiz), &quizbot.Dependencies{
		Players:    playerRepo,
		Characters: characters,
		Renderer:   descriptionService,
		Messenger:  telegram.NewMessenger(api),
		Events:     wsManager,
	})
	bot := telegram.NewBot(api, api, engine, botConfig)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wsHub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return bot.Run(gctx)
	})

	if cfg.Server.Enabled {
		router := newRouter(cfg, bot, engine, playerRepo, wsHub, limiter, leaderboardService)

		// Тайм-ауты защищают от slow client attacks
		srv := &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		}

		g.Go(func() error {
			log.Printf("Starting server on port %s", cfg.Server.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			log.Println("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	log.Printf("Бот запущен (режим %s)", cfg.Telegram.Mode)

	if err := g.Wait(); err != nil {
		log.Printf("Bot stopped with error: %v", err)
		os.Exit(1)
	}

	log.Println("Bot exited properly")
}

func newRouter(
	cfg *config.Config,
	bot *telegram.Bot,
	engine *quizbot.Engine,
	playerRepo *memoryRepo.PlayerRepo,
	wsHub *ws.Hub,
	limiter *middleware.RateLimiter,
	leaderboardService *service.LeaderboardService,
) *gin.Engine {
	router := gin.Default()

	if gin.Mode() == gin.ReleaseMode {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	healthHandler := handler.NewHealthHandler(engine, playerRepo, wsHub)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
	wsHandler := handler.NewWSHandler(wsHub, cfg.Server.AllowedOrigins)

	router.GET("/health", healthHandler.Health)
	router.GET("/ws", wsHandler.HandleConnection)

	api := router.Group("/api")
	api.Use(limiter.Limit(middleware.DefaultAPIRateLimitConfig()))
	{
		api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		api.GET("/leaderboard/export", limiter.Limit(middleware.ExportRateLimitConfig()), leaderboardHandler.ExportLeaderboard)
	}

	if cfg.Telegram.Mode == config.TelegramModeWebhook {
		webhookHandler := handler.NewWebhookHandler(bot, cfg.Telegram.WebhookSecret)
		router.POST(cfg.Telegram.WebhookPath, webhookHandler.HandleUpdate)
	}

	return router
}

// quizConfig переносит настройки файла в конфигурацию движка
func quizConfig(c config.QuizConfig) *quizbot.Config {
	qc := quizbot.DefaultConfig()
	qc.EntryCommands = c.EntryCommands
	qc.ExitCommands = c.ExitCommands
	qc.ExitScope = c.ExitScope
	qc.PointsPerAnswer = c.PointsPerAnswer
	qc.WelcomeText = c.WelcomeText
	qc.QuestionText = c.QuestionText
	qc.GoodbyeText = c.GoodbyeText
	qc.QuestionParseMode = quizbot.ParseMode(c.QuestionParseMode)
	return qc
}
