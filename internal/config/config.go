package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// DataDir is the root of the on-disk content store: pages.jsonl,
	// chunks.jsonl, structured views, and the embedding index live here.
	DataDir string `envconfig:"DATA_DIR" default:"data"`

	// DatabaseURL is optional; when set, the vector index is served from
	// Postgres/pgvector instead of the file-backed snapshot.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"sitechat-archive"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	GenerationModel     string `envconfig:"GENERATION_MODEL" default:"gpt-4o-mini"`

	ChunkMaxChars int `envconfig:"CHUNK_MAX_CHARS" default:"1200"`
	ChunkMinChars int `envconfig:"CHUNK_MIN_CHARS" default:"400"`
	ChunkOverlap  int `envconfig:"CHUNK_OVERLAP" default:"200"`

	TopK            int `envconfig:"TOP_K" default:"6"`
	MaxPromptChunks int `envconfig:"MAX_PROMPT_CHUNKS" default:"6"`
	HistoryTurns    int `envconfig:"HISTORY_TURNS" default:"20"`
	PromptBudget    int `envconfig:"PROMPT_BUDGET" default:"12000"`

	EmbedConcurrency int           `envconfig:"EMBED_CONCURRENCY" default:"4"`
	EmbedMaxRetries  int           `envconfig:"EMBED_MAX_RETRIES" default:"3"`
	RequestTimeout   time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	CrawlDepth    int           `envconfig:"CRAWL_DEPTH" default:"3"`
	CrawlMaxPages int           `envconfig:"CRAWL_MAX_PAGES" default:"200"`
	CrawlDelay    time.Duration `envconfig:"CRAWL_DELAY" default:"500ms"`

	StaleCheckInterval time.Duration `envconfig:"STALE_CHECK_INTERVAL" default:"5m"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("SITECHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
