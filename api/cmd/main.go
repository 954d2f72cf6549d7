package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/campus-coord/internal/application/access"
	"github.com/baechuer/campus-coord/internal/application/approval"
	"github.com/baechuer/campus-coord/internal/application/catalog"
	"github.com/baechuer/campus-coord/internal/application/identity"
	"github.com/baechuer/campus-coord/internal/application/registration"
	"github.com/baechuer/campus-coord/internal/application/reservation"
	"github.com/baechuer/campus-coord/internal/config"
	"github.com/baechuer/campus-coord/internal/infrastructure/memory"
	"github.com/baechuer/campus-coord/internal/infrastructure/outbox"
	"github.com/baechuer/campus-coord/internal/infrastructure/postgres"
	"github.com/baechuer/campus-coord/internal/infrastructure/rabbitmq"
	"github.com/baechuer/campus-coord/internal/infrastructure/redis"
	"github.com/baechuer/campus-coord/internal/infrastructure/security"
	"github.com/baechuer/campus-coord/internal/logger"
	"github.com/baechuer/campus-coord/internal/metrics"
	"github.com/baechuer/campus-coord/internal/transport/http/handlers"
	"github.com/baechuer/campus-coord/internal/transport/http/middleware"
	"github.com/baechuer/campus-coord/internal/transport/http/router"
)

// sysClock implements the services' Clock with UTC wall time.
type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now().UTC() }

// Stores is what the application layer needs from a driver.
type Stores struct {
	Users         identity.UserStore
	Catalog       catalog.Store
	Reservations  reservation.Store
	Events        approval.Store
	Registrations registration.Store
}

// Deps are the optional collaborators. Nil values switch the feature off.
type Deps struct {
	Stores  Stores
	Cache   catalog.Cache
	Limiter middleware.Limiter
	Checks  map[string]handlers.Check
}

type App struct {
	Config  *config.Config
	Server  *http.Server
	Tokens  *security.TokenService
	Catalog *catalog.Service
}

func main() {
	if err := run(); err != nil {
		zlog.Error().Err(err).Msg("campus-coord exited")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	if cfg.LogLevel != "" {
		_ = os.Setenv("LOG_LEVEL", cfg.LogLevel)
	}
	if cfg.LogFormat != "" {
		_ = os.Setenv("LOG_FORMAT", cfg.LogFormat)
	}
	logger.Init()
	log := logger.Component("main").With().Str("env", cfg.AppEnv).Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := Deps{Checks: map[string]handlers.Check{}}
	var source outbox.Source
	// seeder is set when the demo catalog should be loaded; seedFatal fails startup on error.
	var seeder resourceUpserter
	seedFatal := false

	switch cfg.StoreDriver {
	case config.DriverMemory:
		s := memory.New(cfg.StoreLockTimeout)
		seeder, seedFatal = s, true
		deps.Stores = Stores{
			Users:         s,
			Catalog:       s,
			Reservations:  s.Reservations(),
			Events:        s.Events(),
			Registrations: s.Registrations(),
		}
		source = s.Outbox()
		log.Warn().Msg("memory store driver: data is lost on restart")

	default:
		db, err := postgres.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns)
		if err != nil {
			return fmt.Errorf("postgres open: %w", err)
		}
		defer db.Close()

		if cfg.DBAutoMigrate {
			if err := postgres.Migrate(rootCtx, db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
		}

		s := postgres.New(db, cfg.StoreLockTimeout)
		if cfg.AppEnv == "dev" {
			seeder = s
		}
		deps.Stores = Stores{
			Users:         s,
			Catalog:       s,
			Reservations:  s.Reservations(),
			Events:        s.Events(),
			Registrations: s.Registrations(),
		}
		deps.Checks["postgres"] = db.PingContext

		if cfg.OutboxEnabled && cfg.RabbitURL != "" {
			pool, err := outbox.NewPool(rootCtx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("outbox pool: %w", err)
			}
			defer pool.Close()
			source = outbox.NewPgSource(pool)
		}
		log.Info().Msg("postgres connected")
	}

	// Redis is optional: without it the catalog is uncached and logins are
	// limited per IP only.
	if cfg.RedisURL != "" {
		rc, err := redis.New(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable (continuing without cache)")
			metrics.SetDependencyHealth("redis", false)
		} else {
			defer rc.Close()
			deps.Cache = rc
			deps.Limiter = rc
			deps.Checks["redis"] = rc.Ping
			log.Info().Msg("redis connected")
		}
	}

	app := NewApp(cfg, deps)

	if seeder != nil {
		if err := seedResources(rootCtx, seeder, app.Catalog); err != nil {
			if seedFatal {
				return fmt.Errorf("seed resources: %w", err)
			}
			log.Warn().Err(err).Msg("seed resources failed")
		}
	}

	if cfg.OutboxEnabled && cfg.RabbitURL != "" && source != nil {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return fmt.Errorf("rabbit publisher: %w", err)
		}
		defer pub.Close()

		relay := outbox.NewRelay(source, pub, outbox.WithObserver(metrics.OutboxObserver{}))
		go relay.Run(rootCtx)
		log.Info().Str("exchange", cfg.RabbitExchange).Msg("outbox relay started")
	} else {
		log.Warn().Msg("outbox relay disabled: domain events stay in the outbox")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("driver", cfg.StoreDriver).Msg("http server starting")
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("http server crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("shutdown complete")
	return serveErr
}

func NewApp(cfg *config.Config, deps Deps) *App {
	clock := sysClock{}

	// 1) Security
	tokens := security.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTTTL,
		security.WithRefreshGrace(cfg.JWTRefreshGrace))
	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	// 2) Application
	st := deps.Stores
	ident := identity.New(st.Users, hasher, tokens, clock, cfg.AllowPrivilegedSignup)
	bookings := reservation.New(st.Reservations, clock)
	events := approval.New(st.Events, clock)
	regs := registration.New(st.Registrations, clock)
	cat := catalog.New(st.Catalog, deps.Cache, cfg.CacheTTLResources, cfg.CampusLocation)

	// 3) Transport
	h := router.Handlers{
		Auth:      handlers.NewAuthHandler(ident),
		Bookings:  handlers.NewBookingsHandler(bookings, cfg.CampusLocation),
		Resources: handlers.NewResourcesHandler(cat),
		Events:    handlers.NewEventsHandler(events, regs, cfg.CampusLocation),
		Health:    handlers.NewHealthHandler(deps.Checks),
	}
	gate := middleware.NewGate(access.MustDefaultPolicy(), tokens)

	httpHandler := router.New(h, gate, deps.Limiter, router.Limits{
		Enabled:     cfg.RLEnabled,
		IPLimit:     cfg.RLIPLimit,
		IPWindow:    cfg.RLIPWindow,
		LoginLimit:  cfg.RLLoginLimit,
		LoginWindow: cfg.RLLoginWindow,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	return &App{Config: cfg, Server: srv, Tokens: tokens, Catalog: cat}
}
