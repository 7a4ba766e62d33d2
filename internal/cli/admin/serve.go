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
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/brightforge/sitechat/internal/api/handlers"
	"github.com/brightforge/sitechat/internal/config"
	"github.com/brightforge/sitechat/internal/domain"
	"github.com/brightforge/sitechat/internal/index"
	"github.com/brightforge/sitechat/internal/jobs"
	"github.com/brightforge/sitechat/internal/openai"
	"github.com/brightforge/sitechat/internal/server"
	"github.com/brightforge/sitechat/internal/service"
	"github.com/brightforge/sitechat/internal/store"
	"github.com/brightforge/sitechat/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the sitechat API server on the specified port",
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

	// Initialize Sentry with tracing if SITECHAT_SENTRY_DSN is set
	if cfg.SentryDSN != "" {
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
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
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

	content := store.NewContentStore(cfg.DataDir)
	files := index.NewFileStore(cfg.DataDir)
	holder := index.NewHolder(nil)

	var embedClient *openai.Client
	if cfg.HasOpenAI() {
		embedClient = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			GenerationModel:     cfg.GenerationModel,
		})
	} else {
		log.Println("OPENAI_API_KEY not set: chat and rebuild endpoints will return errors")
	}

	var embedder index.Embedder = embedClient
	if embedClient == nil {
		embedder = &unconfiguredProvider{}
	}

	builder := index.NewBuilder(files, embedder, cfg.EmbeddingDimensions, cfg.EmbedConcurrency, cfg.EmbedMaxRetries)
	chunkCfg := service.ChunkConfig{
		MaxChars: cfg.ChunkMaxChars,
		MinChars: cfg.ChunkMinChars,
		Overlap:  cfg.ChunkOverlap,
	}

	indexSvc := service.NewIndexService(content, files, builder, holder, chunkCfg)

	if cfg.HasDatabase() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		log.Println("connected to database")

		// Run migrations unless --no-migrate flag is set
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		indexSvc.WithPGIndex(index.NewPGIndex(pool, cfg.EmbeddingModel, cfg.EmbeddingDimensions))
	}

	if err := indexSvc.Load(); err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	var queryEmbedder service.QueryEmbedder = embedClient
	var generator service.AnswerGenerator = embedClient
	if embedClient == nil {
		provider := &unconfiguredProvider{}
		queryEmbedder = provider
		generator = provider
	}

	stalenessProcessor := jobs.NewStalenessWorker(indexSvc)
	stalenessWorker := jobs.NewWorker(stalenessProcessor, cfg.StaleCheckInterval)
	go stalenessWorker.Start(ctx)
	log.Println("staleness worker started")

	retriever := service.NewRetriever(queryEmbedder, holder, cfg.TopK)
	composer := service.NewComposer(generator, service.ComposerConfig{
		MaxChunks:    cfg.MaxPromptChunks,
		HistoryTurns: cfg.HistoryTurns,
		PromptBudget: cfg.PromptBudget,
	})
	chatSvc := service.NewChatService(retriever, composer, 0).WithStaleness(stalenessProcessor)

	routerCfg := server.RouterConfig{
		ChatHandler:  handlers.NewChatHandler(chatSvc),
		IndexHandler: handlers.NewIndexHandler(indexSvc),
		ViewsHandler: handlers.NewViewsHandler(content),
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

	stalenessWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// unconfiguredProvider stands in for the OpenAI client when no API key
// is configured. Every call fails with a permanent service error so the
// rest of the stack wires up uniformly.
type unconfiguredProvider struct{}

func (p *unconfiguredProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, domain.NewPermanentServiceError(openai.ErrNoAPIKey)
}

func (p *unconfiguredProvider) GenerateAnswer(ctx context.Context, turns []domain.Turn) (string, error) {
	return "", domain.NewPermanentServiceError(openai.ErrNoAPIKey)
}

func (p *unconfiguredProvider) EmbeddingModel() string {
	return ""
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
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
