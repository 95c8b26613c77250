package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/excelthedev/Plural-health/internal/client"
	"github.com/excelthedev/Plural-health/internal/config"
	"github.com/excelthedev/Plural-health/internal/domain/account"
	"github.com/excelthedev/Plural-health/internal/domain/facility"
	"github.com/excelthedev/Plural-health/internal/domain/patient"
	"github.com/excelthedev/Plural-health/internal/domain/record"
	"github.com/excelthedev/Plural-health/internal/platform/auth"
	"github.com/excelthedev/Plural-health/internal/platform/blobstore"
	"github.com/excelthedev/Plural-health/internal/platform/db"
	"github.com/excelthedev/Plural-health/internal/platform/httperr"
	"github.com/excelthedev/Plural-health/internal/platform/metrics"
	"github.com/excelthedev/Plural-health/internal/platform/middleware"
	"github.com/excelthedev/Plural-health/internal/platform/seed"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "plural-server",
		Short: "Plural Health clinic admin API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(recordsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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
			schema, _ := cmd.Flags().GetString("schema")

			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, cfg.MigrationsDir).Status(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
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
	statusCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo facilities, doctors, patients and a week of appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := seed.DefaultConfig()
			cfg.Seed, _ = cmd.Flags().GetInt64("seed")
			cfg.Patients, _ = cmd.Flags().GetInt("patients")
			cfg.Days, _ = cmd.Flags().GetInt("days")

			appCfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			st := postgresStores(pool)
			res, err := seed.NewSeeder(cfg, st.facilities, st.patients, st.records, newLogger(appCfg.Env)).Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d facilities, %d staff, %d patients, %d appointments in %s.\n",
				res.Facilities, res.Staff, res.Patients, res.Appointments, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().Int64("seed", 0, "Random seed (0 picks one from the clock)")
	cmd.Flags().Int("patients", seed.DefaultConfig().Patients, "Number of patients")
	cmd.Flags().Int("days", seed.DefaultConfig().Days, "Days of appointments starting today")
	return cmd
}

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Print a day's appointment records from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL, _ := cmd.Flags().GetString("base-url")
			date, _ := cmd.Flags().GetString("date")
			search, _ := cmd.Flags().GetString("search")

			c := client.New(client.Config{BaseURL: baseURL}, newLogger(""))
			res, err := c.ListRecords(cmd.Context(), record.Query{
				StartDate: date,
				EndDate:   date,
				Search:    search,
				Limit:     "100",
			})
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().String("base-url", "http://localhost:3001/api", "API base URL")
	cmd.Flags().String("date", "", "Day to list (YYYY-MM-DD, default today)")
	cmd.Flags().String("search", "", "Patient name, code or phone")
	return cmd
}

func printRecords(w io.Writer, res *record.ListResult) {
	fmt.Fprintf(w, "%-8s %-28s %-14s %-22s %-18s %12s\n", "TIME", "PATIENT", "CODE", "CLINIC", "STATUS", "WALLET")
	fmt.Fprintln(w, strings.Repeat("-", 107))
	for _, r := range res.Records {
		name := r.PatientName
		if r.IsUrgent {
			name = "! " + name
		}
		fmt.Fprintf(w, "%-8s %-28s %-14s %-22s %-18s %12s\n",
			r.FormattedTime, truncate(name, 28), r.PatientCode, truncate(r.Clinic, 22), r.Status,
			fmt.Sprintf("%s %.2f", r.Currency, r.WalletBalance))
	}
	p := res.Pagination
	fmt.Fprintf(w, "\nPage %d of %d, %d record(s)\n", p.CurrentPage, p.TotalPages, p.TotalRecords)
}

// truncate shortens s to n characters, counting runes so multibyte text
// is never split.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// connect loads config and opens a pool; migrate and seed always need Postgres.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.UsesPostgres() {
		return nil, nil, fmt.Errorf("this command requires STORE=%s", config.StorePostgres)
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

// stores bundles the repositories behind one storage backend.
type stores struct {
	facilities facility.Repository
	patients   patient.Repository
	records    record.Repository
}

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		facilities: facility.NewRepo(pool),
		patients:   patient.NewRepo(pool),
		records:    record.NewRepo(pool),
	}
}

func memoryStores() stores {
	facilities := facility.NewMemoryRepo()
	patients := patient.NewMemoryRepo()
	return stores{
		facilities: facilities,
		patients:   patients,
		records:    record.NewMemoryRepo(patients, facilities),
	}
}

// newServer builds the echo instance with every route and middleware. pool
// is nil in memory mode.
func newServer(cfg *config.Config, st stores, photos blobstore.BlobStore, pool *pgxpool.Pool, m *metrics.Collector, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httperr.Handler(logger, !cfg.IsProduction())

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	issuer := auth.NewTokenIssuer(cfg.SigningKey(), cfg.AuthTokenTTL)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("1M", middleware.FormatLimit(cfg.MaxPhotoBytes+1024*1024)))
	e.Use(middleware.Metrics(m))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "OK",
			"version":   version,
			"store":     cfg.Store,
			"timestamp": time.Now().UTC(),
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))
	}
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	api := e.Group("/api")
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/api/records/export"))
	api.Use(middleware.RateLimit(rateLimitCfg))
	api.Use(middleware.Sanitize(logger))
	api.Use(auth.Identify(issuer))
	api.Use(middleware.Audit(logger))

	patientSvc := patient.NewService(st.patients, st.facilities, photos, m, logger, patient.Defaults{
		Country:  cfg.DefaultCountry,
		Currency: cfg.DefaultCurrency,
	})
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	recordSvc := record.NewService(st.records, m, logger, time.Local)
	record.NewHandler(recordSvc).RegisterRoutes(api)

	facility.NewHandler(st.facilities).RegisterRoutes(api)
	account.NewHandler(issuer, st.facilities).RegisterRoutes(api)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := newLogger("")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	var (
		st   stores
		pool *pgxpool.Pool
	)
	if cfg.UsesPostgres() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
		st = postgresStores(pool)
	} else {
		st = memoryStores()
		if err := seedMemory(ctx, st, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed memory store")
		}
	}

	photos, err := blobstore.NewDiskStore(cfg.UploadDir, cfg.MaxPhotoBytes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload directory")
	}

	e := newServer(cfg, st, photos, pool, metrics.NewCollector("plural"), logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.Store).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// seedMemory gives a memory-mode server the default facility and a week of
// demo data so the dashboard has something to show.
func seedMemory(ctx context.Context, st stores, logger zerolog.Logger) error {
	f, _, err := seed.EnsureDefaultFacility(ctx, st.facilities)
	if err != nil {
		return err
	}
	logger.Info().Str("facility_id", f.ID.String()).Msg("default facility ready")
	_, err = seed.NewSeeder(seed.DefaultConfig(), st.facilities, st.patients, st.records, logger).Run(ctx)
	return err
}
