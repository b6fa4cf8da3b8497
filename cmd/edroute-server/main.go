package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edroute/edroute/internal/config"
	"github.com/edroute/edroute/internal/domain/audit"
	"github.com/edroute/edroute/internal/domain/directory"
	"github.com/edroute/edroute/internal/domain/encounter"
	"github.com/edroute/edroute/internal/domain/lifecycle"
	"github.com/edroute/edroute/internal/domain/recommend"
	"github.com/edroute/edroute/internal/platform/auth"
	"github.com/edroute/edroute/internal/platform/db"
	"github.com/edroute/edroute/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "edroute-server",
		Short: "Emergency patient-to-hospital routing API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the routing API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
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
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load hospitals into the directory from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			var hospitals []*directory.Hospital
			if err := json.Unmarshal(raw, &hospitals); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := directory.NewService(directory.NewRepoPG(pool), cfg.DirectoryTimeout())
			n, err := svc.Seed(ctx, hospitals)
			if err != nil {
				return fmt.Errorf("seed directory: %w", err)
			}

			fmt.Printf("Seeded %d hospital(s).\n", n)
			return nil
		},
	}
	cmd.Flags().String("file", "./seed/hospitals.json", "Path to hospitals JSON file")
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	e.GET("/health", db.HealthHandler(pool))

	// -- Wire domains --

	auditRepo := audit.NewRepoPG(pool)
	auditSink := audit.NewBestEffort(auditRepo, logger, cfg.AuditTimeout())
	auditHandler := audit.NewHandler(auditRepo)
	auditHandler.RegisterRoutes(apiV1)

	dirRepo := directory.NewRepoPG(pool)
	dirSvc := directory.NewService(dirRepo, cfg.DirectoryTimeout())
	dirHandler := directory.NewHandler(dirSvc)
	dirHandler.RegisterRoutes(apiV1)

	encRepo := encounter.NewRepoPG(pool)
	encSvc := encounter.NewService(encRepo)
	encHandler := encounter.NewHandler(encSvc)
	encHandler.RegisterRoutes(e, apiV1)

	engine := recommend.NewEngine(recommend.Params{
		EtaMultCritical:     cfg.EtaMultCritical,
		EtaMultUrgent:       cfg.EtaMultUrgent,
		EtaMultNormal:       cfg.EtaMultNormal,
		DistanceWeight:      cfg.DistanceWeight,
		AcceptBoostCritical: cfg.AcceptBoostCritical,
		DoorToTreatBase:     float64(cfg.DoorToTreatBase),
		DoorToTreatSpread:   float64(cfg.DoorToTreatSpread),
	})
	recSvc := recommend.NewService(engine, dirSvc, encSvc, auditSink)
	recHandler := recommend.NewHandler(recSvc)
	recHandler.RegisterRoutes(e)

	// Re-recommendation signals are surfaced in the log stream; dispatch
	// clients poll the encounter's requests and re-run /recommend.
	notifier := lifecycle.NotifierFunc(func(encounterID uuid.UUID) {
		logger.Warn().
			Str("encounter_id", encounterID.String()).
			Msg("encounter has no live hospital requests, needs re-recommendation")
	})

	lcSvc := lifecycle.NewService(lifecycle.NewRepoPG(pool), encSvc, dirSvc,
		auditSink, notifier, cfg.RequestTTL(), logger)
	lcHandler := lifecycle.NewHandler(lcSvc)
	lcHandler.RegisterRoutes(apiV1)

	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go lifecycle.NewSweeper(lcSvc, cfg.SweepInterval(), logger).Run(sweepCtx)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
