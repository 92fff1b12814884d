package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"careTracker/internal/auth"
	"careTracker/internal/config"
	"careTracker/internal/handlers"
	"careTracker/internal/logger"
	"careTracker/internal/notify"
	"careTracker/internal/repository/inmemory"
	"careTracker/internal/repository/postgres"
	"careTracker/internal/results"
	"careTracker/internal/service"
	"careTracker/internal/worker"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	store     service.Store // интерфейс!
	publisher service.Publisher
	accounts  *service.AccountService
	worker    *worker.ReminderWorker
	shutdowns []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initStore(ctx); err != nil {
		return nil, err
	}
	if err := a.initPublisher(ctx); err != nil {
		return nil, err
	}

	loc, err := a.config.Location()
	if err != nil {
		return nil, fmt.Errorf("часовой пояс чек-листа: %w", err)
	}
	tokens, err := auth.NewTokenService(a.config.Auth.JWTSecret, a.config.Auth.TokenLifetime)
	if err != nil {
		return nil, fmt.Errorf("сервис токенов: %w", err)
	}
	hasher := auth.NewPasswordHasher(a.config.Auth.BcryptCost)
	presenter := results.NewPresenter(nil)

	taskService := service.NewTaskService(a.store, a.store, a.store, a.publisher, presenter)
	a.accounts = service.NewAccountService(a.store, hasher, tokens)

	if err := a.bootstrapAdmin(ctx); err != nil {
		return nil, err
	}

	a.worker = worker.NewReminderWorker(taskService, &a.config.Worker.ReminderInterval, &a.config.Worker.BatchSize)

	a.router = handlers.NewRouter(handlers.Handlers{
		Task:         handlers.NewTaskHandler(taskService),
		Account:      handlers.NewAccountHandler(a.accounts),
		Checklist:    handlers.NewChecklistHandler(service.NewChecklistService(a.store, a.store, loc)),
		Template:     handlers.NewTemplateHandler(service.NewTemplateService(a.store, a.store)),
		Notification: handlers.NewNotificationHandler(service.NewNotificationService(a.store)),
		Export:       handlers.NewExportHandler(service.NewExportService(a.store, a.store, a.store, presenter)),
	}, tokens, handlers.RouterConfig{
		RequestTimeout: a.config.Server.RequestTimeout,
		RateLimitRPM:   a.config.Server.RateLimitRPM,
		CORSOrigins:    a.config.Server.CORSOrigins,
	})

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("App: Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.Bool("redis", a.config.Redis.Enabled),
		zap.String("addr", a.server.Addr),
	)
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.config.Repository.Type {
	case "postgres":
		db := a.config.Database
		storage, err := postgres.New(ctx, db.URL, &postgres.PoolConfig{
			MaxConns:    int32(db.MaxConnections),
			MinConns:    int32(db.MinConnections),
			MaxIdleTime: db.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("подключение к PostgreSQL: %w", err)
		}
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("App: Закрытие пула PostgreSQL...")
			storage.Close()
		})

		if db.MigrateOnStart {
			if err := storage.Migrate(ctx); err != nil {
				return fmt.Errorf("миграции: %w", err)
			}
		}
		a.store = storage
	default:
		logger.Warn("App: Используется хранилище в памяти, данные не сохраняются между запусками")
		a.store = inmemory.New()
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	if !a.config.Redis.Enabled {
		a.publisher = notify.Noop{}
		return nil
	}

	rc := a.config.Redis
	client := notify.NewRedisClient(notify.RedisConfig{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
		Stream:   rc.Stream,
	})
	if err := notify.Ping(ctx, client); err != nil {
		_ = client.Close()
		return fmt.Errorf("подключение к Redis: %w", err)
	}

	publisher := notify.NewRedisPublisher(client, rc.Stream)
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: Закрытие соединения с Redis...")
		if err := publisher.Close(); err != nil {
			logger.Warn("App: Ошибка закрытия Redis", zap.Error(err))
		}
	})
	a.publisher = publisher
	return nil
}

func (a *App) bootstrapAdmin(ctx context.Context) error {
	bc := a.config.Bootstrap
	created, err := a.accounts.EnsureAdmin(ctx, bc.AdminUsername, bc.AdminPassword)
	if err != nil {
		return fmt.Errorf("создание администратора: %w", err)
	}
	if created {
		logger.Info("App: Создан первый администратор", zap.String("username", bc.AdminUsername))
	}
	return nil
}

// Run запускает воркер и HTTP-сервер и блокируется до отмены ctx
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go a.worker.Start(workerCtx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("App: Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP-сервер: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("App: Получен сигнал остановки")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("остановка сервера: %w", err)
	}
	logger.Info("App: Сервер остановлен")
	return nil
}

// Shutdown освобождает ресурсы в обратном порядке
func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
}

func (a *App) Router() http.Handler {
	return a.router
}
