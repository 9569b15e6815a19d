package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/mock-test/backend/internal/auth"
	"github.com/mock-test/backend/internal/config"
	"github.com/mock-test/backend/internal/database"
	"github.com/mock-test/backend/internal/generator"
	"github.com/mock-test/backend/internal/jobs"
	"github.com/mock-test/backend/internal/logging"
	"github.com/mock-test/backend/internal/middleware"
	"github.com/mock-test/backend/internal/questions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var skipMigrations bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}

		log := logging.New(cfg.Service.LogLevel)
		defer log.Sync()
		log.Info("starting API service", zap.String("port", cfg.Service.Port))
		defer log.Info("API service stopped")

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if !skipMigrations {
			if err := database.Migrate(db, log); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Jobs outlive the signal so shutdown can drain them.
		jobsCtx, cancelJobs := context.WithCancel(context.Background())
		defer cancelJobs()

		registry := jobs.NewRegistry()
		runner := jobs.NewRunner(jobsCtx, registry, log)
		go registry.RunJanitor(jobsCtx, cfg.Jobs.SweepInterval, cfg.Jobs.TTL, log.Named("janitor"))

		store := questions.NewStore(db)
		gen := generator.New(generator.Options{
			OpenAI: generator.OpenAIOptions{
				APIKey:     cfg.Providers.OpenAIKey,
				Endpoint:   cfg.Providers.OpenAIBaseURL,
				Model:      cfg.Providers.OpenAIModel,
				Referer:    cfg.Service.FrontendURL,
				HTTPClient: &http.Client{Timeout: cfg.Providers.Timeout},
			},
			AnthropicKey:   cfg.Providers.AnthropicKey,
			AnthropicModel: cfg.Providers.AnthropicModel,
			CLIPath:        cfg.Providers.CLIPath,
		}, log)

		generation := jobs.NewGenerationWorker(registry, runner, gen, store, jobs.GenerationConfig{
			BatchSize:   cfg.Jobs.BatchSize,
			Concurrency: cfg.Jobs.Concurrency,
			CallTimeout: cfg.Providers.Timeout,
		}, log)
		approval := jobs.NewApprovalWorker(registry, runner, store, jobs.ApprovalConfig{
			ChunkSize:  cfg.Jobs.ChunkSize,
			ChunkPause: cfg.Jobs.ChunkPause,
		}, log)

		svc := questions.NewService(store, gen.WithFallbackOnError(), registry, generation, approval, log)
		secret := []byte(cfg.Service.JWTSecret)

		r := mux.NewRouter()

		api := r.PathPrefix("/api/v1").Subrouter()
		api.HandleFunc("/admin/auth/login", auth.NewHandler(db, secret, cfg.Service.TokenTTL, log).Login).Methods("POST")

		admin := api.PathPrefix("/admin").Subrouter()
		admin.Use(middleware.AdminAuth(secret))
		questions.NewHandler(svc, log).RegisterRoutes(admin)

		r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		}).Methods("GET")
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")

		c := cors.New(cors.Options{
			AllowedOrigins:   []string{cfg.Service.FrontendURL},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "x-auth-token"},
			AllowCredentials: true,
		})

		srv := &http.Server{
			Addr:    ":" + cfg.Service.Port,
			Handler: newHandlerChain(r, c, log),
		}

		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			log.Info("shutdown requested")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
		if err := runner.Wait(shutdownCtx); err != nil {
			log.Warn("jobs still running at shutdown; cancelling", zap.Error(err))
			cancelJobs()
		}
		return nil
	},
}

// newHandlerChain wraps the router so unmatched routes and CORS preflights
// are still tagged and logged.
func newHandlerChain(r http.Handler, c *cors.Cors, log *zap.Logger) http.Handler {
	return middleware.RequestID(middleware.RequestLogger(log)(c.Handler(r)))
}

func init() {
	runCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on startup")
}
