package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"issuetracker/internal/access"
	"issuetracker/internal/auth"
	"issuetracker/internal/config"
	"issuetracker/internal/database"
	"issuetracker/internal/events"
	"issuetracker/internal/handler"
	"issuetracker/internal/lock"
	"issuetracker/internal/mail"
	"issuetracker/internal/middleware"
	"issuetracker/internal/notify"
	"issuetracker/internal/ordering"
	"issuetracker/internal/repository"
	"issuetracker/internal/service"
)

type Server struct {
	HTTP   *http.Server
	DB     *gorm.DB
	Config *config.Config

	logger  *slog.Logger
	closers []func() error
	// background workers (the event consumer) stop when cancel is called
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func Init(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := middleware.RegisterValidators(); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{DB: db, Config: cfg, logger: logger, cancel: cancel}
	s.closers = append(s.closers, sqlDB.Close)
	checks := map[string]handler.Check{"database": sqlDB.PingContext}

	rdb := newRedisClient(cfg.Redis, logger)
	var locker lock.Locker = lock.NewMemoryLocker()
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, "issuetracker:")
		s.closers = append(s.closers, rdb.Close)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	var sender mail.Sender = mail.NewLogSender(logger)
	if cfg.Mail.Enabled {
		sender = mail.NewSMTPSender(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.SMTPUser, cfg.Mail.SMTPPass, cfg.Mail.From)
	}
	notifier := notify.NewHandler(userRepo, sender, cfg.PublicURL, logger)
	publisher := s.newPublisher(ctx, cfg.RabbitMQ, notifier, checks)

	// Services
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry)
	guard := access.NewResolver(projectRepo, issueRepo, commentRepo)
	engine := ordering.NewEngine(issueRepo, locker, cfg.ReorderLockTTL, cfg.ReorderLockWait)

	authService := service.NewAuthService(userRepo, issuer, publisher, logger, service.AuthOptions{
		BcryptCost:    cfg.BcryptCost,
		ResetTokenTTL: cfg.ResetTokenTTL,
	})
	userService := service.NewUserService(userRepo)
	projectService := service.NewProjectService(projectRepo, issueRepo, userRepo, guard, publisher, logger)
	issueService := service.NewIssueService(issueRepo, projectRepo, guard, engine, publisher, logger)
	commentService := service.NewCommentService(commentRepo, guard, publisher, logger)

	router := NewRouter(Handlers{
		Users:    handler.NewUserHandler(authService, userService),
		Projects: handler.NewProjectHandler(projectService),
		Issues:   handler.NewIssueHandler(issueService),
		Comments: handler.NewCommentHandler(commentService),
		Health:   handler.NewHealthHandler(checks),
	}, RouterOptions{
		Issuer:        issuer,
		Logger:        logger,
		RateLimit:     cfg.RateLimit,
		Redis:         rdb,
		CORSOrigin:    cfg.PublicURL,
		ExposeDetails: !cfg.IsProduction(),
	})

	s.HTTP = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// newPublisher prefers RabbitMQ and falls back to delivering events in
// process when it is disabled or unreachable.
func (s *Server) newPublisher(ctx context.Context, cfg config.RabbitMQConfig, h events.Handler, checks map[string]handler.Check) events.Publisher {
	if cfg.Enabled {
		amqpPub, err := events.NewAMQPPublisher(cfg.URL, cfg.Queue)
		if err == nil {
			s.logger.Info("✅ Connected to RabbitMQ", "queue", cfg.Queue)
			s.closers = append(s.closers, amqpPub.Close)
			checks["rabbitmq"] = amqpPub.Healthy
			if cfg.ConsumerEnabled {
				consumer := events.NewConsumer(cfg.URL, cfg.Queue, h, s.logger)
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						s.logger.Error("event consumer stopped", "error", err)
					}
				}()
			}
			return amqpPub
		}
		s.logger.Warn("⚠️  RabbitMQ unavailable, delivering events in process", "error", err)
	}

	local := events.NewLocalPublisher(h, s.logger)
	s.closers = append(s.closers, local.Close)
	return local
}

// newRedisClient returns nil when Redis is disabled or does not answer.
func newRedisClient(cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("⚠️  Redis unavailable, using in-process locks and no rate limiting", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("✅ Connected to Redis", "addr", cfg.Addr)
	return client
}

func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 Server running", "port", s.Config.ServerPort)
		if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		s.close()
		return fmt.Errorf("❌ failed to listen: %w", err)
	}
	s.logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.HTTP.Shutdown(ctx)
	s.close()
	if err != nil {
		return fmt.Errorf("❌ server forced to shutdown: %w", err)
	}

	s.logger.Info("✅ Server exited properly")
	return nil
}

// close stops background workers and then releases connections in reverse
// order of creation.
func (s *Server) close() {
	s.cancel()
	s.wg.Wait()
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close failed", "error", err)
		}
	}
}
