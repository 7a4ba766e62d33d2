package client

import (
	"fmt"

	"github.com/brightforge/sitechat/internal/config"
	"github.com/brightforge/sitechat/internal/index"
	"github.com/brightforge/sitechat/internal/openai"
	"github.com/brightforge/sitechat/internal/service"
	"github.com/brightforge/sitechat/internal/store"
)

// localStack is the chat pipeline assembled over the local data dir.
type localStack struct {
	content  *store.ContentStore
	holder   *index.Holder
	indexSvc *service.IndexService
	client   *openai.Client
}

// buildLocalStack wires the content store, index and OpenAI client for
// commands that run the pipeline locally instead of against a server.
func buildLocalStack(cfg *config.Config) (*localStack, error) {
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("SITECHAT_OPENAI_API_KEY is required")
	}

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		GenerationModel:     cfg.GenerationModel,
	})

	content := store.NewContentStore(cfg.DataDir)
	files := index.NewFileStore(cfg.DataDir)
	holder := index.NewHolder(nil)
	builder := index.NewBuilder(files, client, cfg.EmbeddingDimensions, cfg.EmbedConcurrency, cfg.EmbedMaxRetries)

	indexSvc := service.NewIndexService(content, files, builder, holder, service.ChunkConfig{
		MaxChars: cfg.ChunkMaxChars,
		MinChars: cfg.ChunkMinChars,
		Overlap:  cfg.ChunkOverlap,
	})
	if err := indexSvc.Load(); err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	return &localStack{
		content:  content,
		holder:   holder,
		indexSvc: indexSvc,
		client:   client,
	}, nil
}
