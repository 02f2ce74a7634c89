package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ems/casebook/internal/config"
	"github.com/ems/casebook/internal/domain/bodymap"
	"github.com/ems/casebook/internal/domain/cases"
	"github.com/ems/casebook/internal/domain/dashboard"
	"github.com/ems/casebook/internal/domain/patient"
	"github.com/ems/casebook/internal/domain/responder"
	"github.com/ems/casebook/internal/platform/auth"
	"github.com/ems/casebook/internal/platform/db"
	"github.com/ems/casebook/internal/platform/events"
	"github.com/ems/casebook/internal/platform/feed"
	"github.com/ems/casebook/internal/platform/middleware"
	"github.com/ems/casebook/internal/session"
)

const (
	version = "0.1.0"

	sessionIdle  = 12 * time.Hour
	sweepEvery   = 10 * time.Minute
	shutdownWait = 10 * time.Second
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "casebook-server",
		Short: "Emergency response casebook API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the casebook API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// openMigrator loads the config and connects. dir overrides MIGRATIONS_DIR
// when set.
func openMigrator(ctx context.Context, dir string) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, dir), pool.Close, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx := context.Background()
			migrator, closeFn, err := openMigrator(ctx, dir)
			if err != nil {
				return err
			}
			defer closeFn()

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx := context.Background()
			migrator, closeFn, err := openMigrator(ctx, dir)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// resolveSigningKey decodes AUTH_SIGNING_KEY. Hex values are decoded, any
// other value is used as raw bytes. Empty means JWKS validation.
func resolveSigningKey(envValue string) []byte {
	if envValue == "" {
		return nil
	}
	if decoded, err := hex.DecodeString(envValue); err == nil && len(decoded) > 0 {
		return decoded
	}
	return []byte(envValue)
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) events.Publisher {
	if cfg.EventsEnabled() {
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing case events to kafka")
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	return events.NewLogPublisher(logger)
}

// writesOnly applies mw to requests that change state.
func writesOnly(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		limited := mw(next)
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			return limited(c)
		}
	}
}

// newServer builds the echo instance with every route registered. pool may
// be nil in tests; routes then fail when they reach the database.
func newServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger, publisher events.Publisher, hub *feed.Hub, sessions *session.Registry) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.StatsOf(pool) }))
	e.GET("/metrics", metrics.Handler())

	apiV1 := e.Group("/api/v1")
	if cfg.RequestTimeout > 0 {
		apiV1.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}

	// Auth middleware
	jwtMW := auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: resolveSigningKey(cfg.AuthSigningKey),
	})
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware(jwtMW))
	} else {
		apiV1.Use(jwtMW)
	}

	apiV1.Use(writesOnly(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.WriteRateRPS,
		BurstSize:         cfg.WriteRateBurst,
		KeyFunc:           auth.SubjectKey,
	})))

	tx := db.NewTransactor(pool)

	// Patients
	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)

	// Responders
	responderSvc := responder.NewService(
		responder.NewUserRepoPG(pool),
		responder.NewProfileRepoPG(pool),
		responder.NewCatalogRepoPG(pool),
	)
	responderSvc.SetTransactor(tx)
	responderSvc.SetLogger(logger.With().Str("component", "responder").Logger())
	responder.NewHandler(responderSvc).RegisterRoutes(apiV1)

	// Cases
	injuryRepo := cases.NewInjuryRepoPG(pool)
	caseCatalog := cases.NewCatalogRepoPG(pool)
	agg := cases.NewAggregator(patientRepo, injuryRepo, caseCatalog, responderSvc)
	caseSvc := cases.NewService(cases.NewCaseRepoPG(pool), patientRepo, injuryRepo, caseCatalog, agg)
	caseSvc.SetTransactor(tx)
	caseSvc.SetPublisher(publisher)
	caseSvc.SetLogger(logger.With().Str("component", "cases").Logger())
	if err := caseSvc.RegisterMetrics(reg); err != nil {
		return nil, fmt.Errorf("register case metrics: %w", err)
	}
	cases.NewHandler(caseSvc, responderSvc, sessions).RegisterRoutes(apiV1)

	// Body map and session drafts
	bodymap.NewHandler().RegisterRoutes(apiV1)
	session.NewHandler(sessions).RegisterRoutes(apiV1)

	// Dashboard and live case feed
	dashboard.NewHandler(dashboard.NewService(patientSvc, caseSvc)).RegisterRoutes(apiV1)
	feed.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	return e, nil
}

// sweepSessions drops idle session state until ctx is done.
func sweepSessions(ctx context.Context, sessions *session.Registry, logger zerolog.Logger) {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(sessionIdle); n > 0 {
				logger.Debug().Int("removed", n).Int("remaining", sessions.Len()).Msg("swept idle sessions")
			}
		}
	}
}

func runServer() error {
	// Logger
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	migrations, err := db.NewMigrator(pool, cfg.MigrationsDir).Status(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read migration status")
	}
	for _, m := range migrations {
		if !m.Applied {
			logger.Warn().Int("version", m.Version).Str("name", m.Name).Msg("pending migration, run `casebook-server migrate up`")
		}
	}

	hub := feed.NewHub(logger)
	publisher := events.Fanout{newPublisher(cfg, logger), hub}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("close event publisher")
		}
	}()

	sessions := session.NewRegistry()
	go sweepSessions(ctx, sessions, logger)

	e, err := newServer(cfg, pool, logger, publisher, hub, sessions)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
