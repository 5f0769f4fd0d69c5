package main

import (
	"context"
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

	"github.com/renalreg/registry/internal/config"
	"github.com/renalreg/registry/internal/domain/assessment"
	"github.com/renalreg/registry/internal/domain/modality"
	"github.com/renalreg/registry/internal/domain/patient"
	"github.com/renalreg/registry/internal/domain/reference"
	"github.com/renalreg/registry/internal/platform/auth"
	"github.com/renalreg/registry/internal/platform/db"
	"github.com/renalreg/registry/internal/platform/middleware"
)

// EpisodeSourceAdapter adapts the modality service to the
// assessment.EpisodeSource interface, avoiding circular imports between
// the assessment and modality packages.
type EpisodeSourceAdapter struct {
	svc *modality.Service
}

func NewEpisodeSourceAdapter(svc *modality.Service) *EpisodeSourceAdapter {
	return &EpisodeSourceAdapter{svc: svc}
}

// CurrentEpisodeFor implements assessment.EpisodeSource.
func (a *EpisodeSourceAdapter) CurrentEpisodeFor(ctx context.Context, patientID uuid.UUID) (*assessment.EpisodeSummary, error) {
	e, err := a.svc.Current(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	return &assessment.EpisodeSummary{
		ID:       e.ID,
		Modality: string(e.Modality),
		Dialysis: e.Modality.Dialysis(),
	}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "registry-server",
		Short: "Renal Registry API Server",
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
		Short: "Start the registry API server",
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

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSecret),
		}))
	}

	// Repositories
	institutionRepo := reference.NewInstitutionRepoPG(pool)
	hdUnitRepo := reference.NewHDUnitRepoPG(pool)
	comorbidityRepo := reference.NewComorbidityRepoPG(pool)
	disabilityRepo := reference.NewDisabilityRepoPG(pool)
	labParamRepo := reference.NewLabParameterRepoPG(pool)
	medicationRepo := reference.NewMedicationRepoPG(pool)

	patientRepo := patient.NewPatientRepoPG(pool)
	registrationRepo := patient.NewRegistrationRepoPG(pool)
	diagnosisRepo := patient.NewDiagnosisRepoPG(pool)

	episodeRepo := modality.NewEpisodeRepoPG(pool)
	akiRepo := modality.NewAKIRepoPG(pool)
	stopRepo := modality.NewStopRepoPG(pool)

	eventRepo := assessment.NewEventRepoPG(pool)
	facetRepo := assessment.NewFacetRepoPG(pool)

	// Services. The patient repo doubles as the modality package's patient
	// store and the assessment package's patient source; the reference
	// service is the catalogue both validation paths consult.
	referenceSvc := reference.NewService(institutionRepo, hdUnitRepo,
		comorbidityRepo, disabilityRepo, labParamRepo, medicationRepo)

	episodeSvc := modality.NewService(episodeRepo, akiRepo, stopRepo,
		patientRepo, cfg.StopBlocksAssessments, logger)

	assessmentSvc := assessment.NewService(eventRepo, facetRepo,
		NewEpisodeSourceAdapter(episodeSvc), episodeSvc, patientRepo,
		referenceSvc, cfg.StopBlocksAssessments, logger)

	patientSvc := patient.NewService(patientRepo, registrationRepo,
		diagnosisRepo, referenceSvc, episodeSvc, assessmentSvc, logger)

	// Routes
	apiV1 := e.Group("/api/v1")

	reference.NewHandler(referenceSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc, pool).RegisterRoutes(apiV1)
	modality.NewHandler(episodeSvc, assessmentSvc, pool).RegisterRoutes(apiV1)
	assessment.NewHandler(assessmentSvc, pool).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting registry server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
