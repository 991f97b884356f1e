package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/diagnosis/quickstay/internal/http/handlers"
	"github.com/diagnosis/quickstay/internal/http/middleware"
	"github.com/diagnosis/quickstay/internal/platform/mailer"
	"github.com/diagnosis/quickstay/internal/platform/session"
	"github.com/diagnosis/quickstay/internal/repo/postgres"
	"github.com/diagnosis/quickstay/internal/service"
	"github.com/diagnosis/quickstay/pkg/config"
	"github.com/diagnosis/quickstay/pkg/database"
	"github.com/diagnosis/quickstay/pkg/events"
	"github.com/diagnosis/quickstay/pkg/logger"
	mw "github.com/diagnosis/quickstay/pkg/middleware"
)

const cleanupInterval = 15 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load .env file", "error", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logger.Error("QuickStay API stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(cfg.Database.URL); err != nil {
			return err
		}
		logger.Info("Database migrations applied")
	}

	sessions, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	eventBus := newEventBus(cfg.NATS)
	defer eventBus.Close()

	// Initialize repositories
	usersRepo := postgres.NewUsersRepo(pool)
	roomsRepo := postgres.NewRoomsRepo(pool)
	bookingRepo := postgres.NewBookingRepo(pool)
	reviewsRepo := postgres.NewReviewsRepo(pool)
	idempotencyRepo := postgres.NewIdempotencyRepo(pool)
	rateLimitRepo := postgres.NewRateLimitRepo(pool)

	// Initialize services
	mail := mailer.NewFromConfig(cfg.Email, cfg.OTP.TTL)
	authService := service.NewAuthService(usersRepo, mail, eventBus, cfg.Auth)
	recoveryService := service.NewRecoveryService(usersRepo, mail, eventBus, cfg.OTP)
	roomService := service.NewRoomService(roomsRepo, bookingRepo, reviewsRepo, eventBus)
	bookingService := service.NewBookingService(bookingRepo, idempotencyRepo, eventBus)

	h := handlers.New(authService, recoveryService, roomService, bookingService)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("quickstay-api"))
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(mw.CORS(cfg.Server.AllowedOrigins))
	r.Use(mw.Health)
	r.Use(mw.Metrics)

	r.Mount("/v1", h.Routes(handlers.RouteOptions{
		JWTSecret:         cfg.Auth.JWTSecret,
		Cookies:           middleware.NewCookieStore(cfg.Session),
		CookieName:        cfg.Session.CookieName,
		Sessions:          sessions,
		Limiter:           rateLimitRepo,
		OTPRequests:       cfg.RateLimit.OTPRequests,
		OTPWindow:         cfg.RateLimit.OTPWindow,
		TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
	}))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting QuickStay API", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down QuickStay API...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		cleanupLoop(gctx, idempotencyRepo, rateLimitRepo)
		return nil
	})

	return g.Wait()
}

// newSessionStore prefers Redis and falls back to process memory when Redis
// cannot be reached, which only suits a single instance.
func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	opts.DB = cfg.Redis.DB
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, keeping recovery sessions in memory", "error", err)
		_ = client.Close()
		return session.NewMemoryStore(cfg.Session.TTL), func() {}, nil
	}

	return session.NewRedisStore(client, cfg.Session.TTL), func() { _ = client.Close() }, nil
}

func newEventBus(cfg config.NATSConfig) events.Publisher {
	if !cfg.Enabled {
		return events.NopPublisher{}
	}
	bus, err := events.NewNATSEventBus(cfg.URL)
	if err != nil {
		logger.Warn("NATS unavailable, domain events are disabled", "error", err)
		return events.NopPublisher{}
	}
	return bus
}

type expirer interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

func cleanupLoop(ctx context.Context, stores ...expirer) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, s := range stores {
				n, err := s.CleanupExpired(ctx)
				if err != nil {
					logger.Warn("Failed to clean up expired rows", "error", err)
					continue
				}
				if n > 0 {
					logger.Debug("Cleaned up expired rows", "count", n)
				}
			}
		}
	}
}
