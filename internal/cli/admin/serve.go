package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/parley/internal/api/handlers"
	"github.com/cloo-solutions/parley/internal/config"
	"github.com/cloo-solutions/parley/internal/database"
	"github.com/cloo-solutions/parley/internal/jobs"
	"github.com/cloo-solutions/parley/internal/llm"
	"github.com/cloo-solutions/parley/internal/openai"
	"github.com/cloo-solutions/parley/internal/repository"
	"github.com/cloo-solutions/parley/internal/server"
	"github.com/cloo-solutions/parley/internal/service"
	"github.com/cloo-solutions/parley/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the parley API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	conversationRepo := repository.NewConversationRepository(pool)
	turnRepo := repository.NewTurnRepository(pool)
	recordRepo := repository.NewRecordRepository(pool)
	matchLogRepo := repository.NewMatchLogRepository(pool)

	var embeddingClient service.EmbeddingClient
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClient(cfg.OpenAIAPIKey)
	}

	matcher := service.NewMatcherService(recordRepo, embeddingClient, cfg.MatchThreshold).
		WithMatchLog(matchLogRepo)

	var backfillWorker *jobs.Worker
	if embeddingClient != nil {
		embeddingSvc := service.NewEmbeddingService(embeddingClient, recordRepo).WithMatcher(matcher)
		backfill := jobs.NewBackfillWorker(recordRepo, embeddingSvc)
		backfillWorker = jobs.NewWorker(backfill, 10*time.Second)
		go backfillWorker.Start(ctx)
		log.Println("embedding backfill worker started")
	}

	var generator llm.Generator
	if cfg.LLMProvider != "" {
		generator, err = llm.New(llm.ProviderConfig{
			Provider: cfg.LLMProvider,
			Model:    cfg.LLMModel,
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OllamaURL,
		})
		if err != nil {
			// Domain matching still works without a generation backend.
			log.Printf("generation backend unavailable: %v", err)
		}
	}

	memory := service.NewMemoryStore(turnRepo)
	chatSvc := service.NewChatService(conversationRepo, memory, matcher, generator, service.ChatConfig{
		MemoryWindow:      cfg.HistoryWindow,
		GenerationTimeout: cfg.GenerateTimeout,
		MaxTokens:         cfg.MaxTokens,
	})
	conversationSvc := service.NewConversationService(conversationRepo, memory)
	recordSvc := service.NewRecordService(recordRepo, embeddingClient, matcher)

	routerCfg := server.RouterConfig{
		APIToken:            cfg.APIKey,
		ConversationHandler: handlers.NewConversationHandler(conversationSvc),
		ChatHandler:         handlers.NewChatHandler(chatSvc),
		DomainHandler:       handlers.NewDomainHandler(recordSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if backfillWorker != nil {
		backfillWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
