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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hadadahealth/hadada/internal/config"
	"github.com/hadadahealth/hadada/internal/domain/aicontent"
	"github.com/hadadahealth/hadada/internal/domain/billing"
	"github.com/hadadahealth/hadada/internal/domain/identity"
	"github.com/hadadahealth/hadada/internal/domain/notes"
	"github.com/hadadahealth/hadada/internal/domain/reports"
	"github.com/hadadahealth/hadada/internal/domain/scheduling"
	"github.com/hadadahealth/hadada/internal/platform/ai"
	"github.com/hadadahealth/hadada/internal/platform/auth"
	"github.com/hadadahealth/hadada/internal/platform/db"
	"github.com/hadadahealth/hadada/internal/platform/metrics"
	"github.com/hadadahealth/hadada/internal/platform/middleware"
	"github.com/hadadahealth/hadada/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hadada-server",
		Short: "HadadaHealth practice management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			e, err := buildServer(cfg, pool, logger)
			if err != nil {
				return err
			}

			go func() {
				addr := ":" + cfg.Port
				logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()

			<-ctx.Done()
			logger.Info().Msg("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}

func buildServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, middleware.RequestIDHeader},
	}))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(metrics.Middleware())
	e.Use(middleware.Audit(middleware.LogAuditRecorder(logger)))

	e.GET("/healthz", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api/v1")
	if cfg.IsDev() {
		api.Use(auth.DevAuthMiddleware())
	} else {
		api.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.AuthSecret),
			Issuer:     "hadadahealth",
		}))
	}

	notifMgr := notification.NewManager(
		&notification.LogEmailSender{Logger: logger},
		&notification.LogSMSSender{Logger: logger},
		notification.NewTemplateEngine(),
	)

	identitySvc := identity.NewService(identity.NewRepo(pool))
	directory := &directoryAdapter{identity: identitySvc}

	schedulingSvc := scheduling.NewService(scheduling.NewRepo(pool), directory, notifMgr, logger)
	notesSvc := notes.NewService(notes.NewRepo(pool))
	billingSvc := billing.NewService(billing.NewRepo(pool), pool)
	reportsSvc := reports.NewService(reports.NewRepo(pool), directory, notifMgr, logger)

	identity.NewHandler(identitySvc).RegisterRoutes(api)
	scheduling.NewHandler(schedulingSvc, time.Duration(cfg.ReminderWindowH)*time.Hour).RegisterRoutes(api)
	notes.NewHandler(notesSvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	reports.NewHandler(reportsSvc).RegisterRoutes(api)
	notification.NewHandler(notifMgr).RegisterRoutes(api.Group("", auth.RequireRole("admin")))

	if cfg.AIEnabled() {
		client := ai.NewClient(ai.Config{
			BaseURL:           cfg.AIAPIURL,
			APIKey:            cfg.AIAPIKey,
			Model:             cfg.AIModel,
			RequestsPerMinute: 30,
		})
		provider := &contextProviderAdapter{
			identity:   identitySvc,
			notes:      notesSvc,
			scheduling: schedulingSvc,
		}
		aiSvc := aicontent.NewService(
			aicontent.NewRepo(pool),
			provider,
			client,
			time.Duration(cfg.AICacheTTLHours)*time.Hour,
			logger,
		)
		aicontent.NewHandler(aiSvc).RegisterRoutes(api)
	} else {
		logger.Warn().Msg("AI content generation disabled, AI_API_URL or AI_API_KEY not set")
	}

	return e, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	var migrationsDir string
	cmd.PersistentFlags().StringVar(&migrationsDir, "dir", "migrations", "directory containing migration files")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := db.NewMigrator(pool, migrationsDir).Up(ctx)
			if err != nil {
				return err
			}
			logger.Info().Int("applied", n).Msg("migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrationsDir).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Printf("%4d  %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	})

	return cmd
}

// directoryAdapter exposes the identity service through the narrow
// Directory interfaces the scheduling and reports services depend on,
// avoiding imports between domain packages.
type directoryAdapter struct {
	identity *identity.Service
}

func (d *directoryAdapter) PatientInfo(ctx context.Context, id uuid.UUID) (string, string, error) {
	p, err := d.identity.GetPatient(ctx, id)
	if err != nil {
		return "", "", err
	}
	email := ""
	if p.Email != nil {
		email = *p.Email
	}
	return p.FullName(), email, nil
}

func (d *directoryAdapter) TherapistInfo(ctx context.Context, id uuid.UUID) (string, string, error) {
	t, err := d.identity.GetTherapist(ctx, id)
	if err != nil {
		return "", "", err
	}
	email := ""
	if t.Email != nil {
		email = *t.Email
	}
	return t.FullName(), email, nil
}

// contextProviderAdapter assembles the AI prompt context from the
// identity, notes, and scheduling services with sequential reads.
type contextProviderAdapter struct {
	identity   *identity.Service
	notes      *notes.Service
	scheduling *scheduling.Service
}

const (
	promptNoteLimit    = 10
	promptBookingLimit = 20
)

func (p *contextProviderAdapter) PatientContext(ctx context.Context, patientID uuid.UUID, discipline string) (*aicontent.PatientContext, error) {
	patient, err := p.identity.GetPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("patient lookup: %w", err)
	}

	recentNotes, err := p.notes.RecentNotesByPatient(ctx, patientID, promptNoteLimit)
	if err != nil {
		return nil, fmt.Errorf("recent notes: %w", err)
	}

	bookings, _, err := p.scheduling.ListBookingsByPatient(ctx, patientID, promptBookingLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("bookings: %w", err)
	}

	pc := &aicontent.PatientContext{Name: patient.FullName()}
	if patient.DateOfBirth != nil {
		pc.DateOfBirth = patient.DateOfBirth.Format("2006-01-02")
	}
	if patient.Gender != nil {
		pc.Gender = *patient.Gender
	}
	if patient.MedicalAidName != nil {
		pc.MedicalAid = *patient.MedicalAidName
	}
	pc.Notes = summarizeNotes(recentNotes, discipline)
	pc.Bookings = summarizeBookings(bookings)
	return pc, nil
}

// summarizeNotes condenses treatment notes for prompting. When a
// discipline is given, notes from other disciplines are dropped.
func summarizeNotes(ns []*notes.TreatmentNote, discipline string) []aicontent.NoteSummary {
	var out []aicontent.NoteSummary
	for _, n := range ns {
		if discipline != "" && n.Discipline != discipline {
			continue
		}
		s := aicontent.NoteSummary{
			Date:       n.CreatedAt,
			Discipline: n.Discipline,
		}
		if n.Subjective != nil {
			s.Subjective = *n.Subjective
		}
		if n.Objective != nil {
			s.Objective = *n.Objective
		}
		if n.Assessment != nil {
			s.Assessment = *n.Assessment
		}
		if n.Plan != nil {
			s.Plan = *n.Plan
		}
		out = append(out, s)
	}
	return out
}

func summarizeBookings(bs []*scheduling.Booking) []aicontent.BookingSummary {
	out := make([]aicontent.BookingSummary, 0, len(bs))
	for _, b := range bs {
		out = append(out, aicontent.BookingSummary{Date: b.StartTime, Status: b.Status})
	}
	return out
}
