package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"english_test_bot/internal/config"
	"english_test_bot/internal/repository"
	"english_test_bot/internal/service"
	"english_test_bot/internal/telegram"
	"english_test_bot/pkg/configwatcher"
	"english_test_bot/pkg/database"
	"english_test_bot/pkg/logger"
	"english_test_bot/pkg/monitoring"
	"english_test_bot/pkg/tracing"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	DB     *gorm.DB
	Bot    *telegram.Bot

	quiz  *service.QuizService
	admin *service.AdminService
	cast  *service.BroadcastService

	ops            *http.Server
	tracerProvider *sdktrace.TracerProvider
}

func NewApp(cfg *config.Config) (*App, error) {
	monitoring.Init()

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if err := database.SeedQuestions(db); err != nil {
		return nil, err
	}

	users := repository.NewUserRepository(db)
	questions := repository.NewQuestionRepository(db)
	results := repository.NewResultRepository(db)
	adminSessions := repository.NewAdminSessionRepository(db)
	broadcasts := repository.NewBroadcastRepository(db)

	sessions := service.NewMemorySessionStore()
	quiz := service.NewQuizService(sessions, questions, results, cfg.Quiz)
	resultSvc := service.NewResultService(users, results)
	adminSvc := service.NewAdminService(adminSessions, questions, users, results, cfg.Admin)
	cast := service.NewBroadcastService(users, broadcasts, cfg.Broadcast.RatePerSecond)

	bot, err := telegram.NewBot(cfg, logger.Log, quiz, resultSvc, adminSvc, cast)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Bot:    bot,
		quiz:   quiz,
		admin:  adminSvc,
		cast:   cast,
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("english-test-bot", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Warn("tracer init failed, continuing without tracing", zap.Error(err))
		} else {
			app.tracerProvider = tp
		}
	}

	if cfg.Ops.Port != "" {
		app.ops = opsServer(cfg)
	}

	return app, nil
}

// opsServer exposes /health and /metrics on a side port; the bot itself
// has no inbound HTTP surface.
func opsServer(cfg *config.Config) *http.Server {
	if cfg.Bot.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", monitoring.PrometheusHandler())
	return &http.Server{
		Addr:    ":" + cfg.Ops.Port,
		Handler: router,
	}
}

// Run starts the bot loop and the background tasks, then blocks until
// SIGINT/SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.ops != nil {
		go func() {
			logger.Log.Info("ops server listening", zap.String("addr", a.ops.Addr))
			if err := a.ops.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Log.Error("ops server failed", zap.Error(err))
			}
		}()
	}

	go a.sweepIdleSessions(ctx)
	go a.purgeExpiredLogins(ctx)
	go configwatcher.WatchConfig("configs/config.yaml", a.reloadConfig)

	logger.Log.Info("bot starting",
		zap.String("mode", a.Config.Bot.Mode),
		zap.String("database", a.Config.Database.Driver))
	a.Bot.Start(ctx)

	return a.shutdown()
}

// sweepIdleSessions abandons quiz sessions idle past the timeout. An
// abandoned session is counted and logged but never persisted as a
// result.
func (a *App) sweepIdleSessions(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, session := range a.quiz.SweepIdle() {
				monitoring.QuizSessions.WithLabelValues("abandoned").Inc()
				logger.Log.Info("quiz session abandoned",
					zap.Int64("user_id", session.UserID),
					zap.String("level", string(session.Level)),
					zap.Int("answered", len(session.Answers)),
					zap.Int("total", session.Total()))
			}
		}
	}
}

func (a *App) purgeExpiredLogins(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.admin.PurgeExpiredLogins(); err != nil {
				logger.Log.Warn("login purge failed", zap.Error(err))
			}
		}
	}
}

// reloadConfig applies the hot-reloadable parts of a changed config
// file. Token and database settings need a restart.
func (a *App) reloadConfig(cfg *config.Config) {
	a.quiz.UpdateConfig(cfg.Quiz)
	a.admin.UpdateConfig(cfg.Admin)
	a.cast.UpdateRate(cfg.Broadcast.RatePerSecond)
	logger.Log.Info("configuration reloaded")
}

func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.ops != nil {
		if err := a.ops.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warn("ops server shutdown failed", zap.Error(err))
		}
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	logger.Log.Info("bot stopped")
	return nil
}
