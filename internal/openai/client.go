package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"github.com/brightforge/sitechat/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
	// DefaultGenerationModel is the chat model used for answer generation
	DefaultGenerationModel = openai.GPT4oMini
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when no OpenAI API key is configured
	ErrNoAPIKey = errors.New("OpenAI API key is not configured")
)

// EmbeddingAPI defines the interface for embedding generation.
// Texts are batched into a single request to amortize round-trips.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatAPI defines the interface for chat completion
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
}

// Client wraps the OpenAI API client
type Client struct {
	embeddings     EmbeddingAPI
	chat           ChatAPI
	embeddingModel string
	dimensions     int
}

type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	chatModel      string
}

func NewOpenAIAdapter(apiKey, embeddingModel, chatModel string) *OpenAIAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if chatModel == "" {
		chatModel = DefaultGenerationModel
	}
	return &OpenAIAdapter{
		client:         openai.NewClient(apiKey),
		embeddingModel: openai.EmbeddingModel(embeddingModel),
		chatModel:      chatModel,
	}
}

// CreateEmbeddings calls the OpenAI API to embed a batch of texts
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// CreateChatCompletion calls the OpenAI API for a single completion
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.chatModel,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      string
	EmbeddingDimensions int
	GenerationModel     string
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	adapter := NewOpenAIAdapter(cfg.APIKey, model, cfg.GenerationModel)
	return &Client{
		embeddings:     adapter,
		chat:           adapter,
		embeddingModel: model,
		dimensions:     dimensions,
	}
}

// EmbeddingModel returns the configured embedding model identifier.
func (c *Client) EmbeddingModel() string {
	return c.embeddingModel
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GenerateEmbeddings generates embeddings for a batch of texts.
// Provider failures are classified into the domain error taxonomy so
// callers can decide whether to retry.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}
	for _, text := range texts {
		if text == "" {
			return nil, ErrEmptyText
		}
	}

	vectors, err := c.embeddings.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, classifyServiceError(err)
	}

	for _, v := range vectors {
		if len(v) != c.dimensions {
			return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(v), c.dimensions)
		}
	}

	return vectors, nil
}

// GenerateAnswer produces a completion for the given conversation.
func (c *Client) GenerateAnswer(ctx context.Context, turns []domain.Turn) (string, error) {
	if len(turns) == 0 {
		return "", ErrEmptyText
	}

	messages := make([]openai.ChatCompletionMessage, len(turns))
	for i, turn := range turns {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Text,
		}
	}

	answer, err := c.chat.CreateChatCompletion(ctx, messages)
	if err != nil {
		return "", classifyServiceError(err)
	}
	return answer, nil
}

// classifyServiceError maps provider failures onto the domain taxonomy:
// rate limits, timeouts and 5xx are transient; auth failures and
// malformed requests are permanent.
func classifyServiceError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return domain.NewTransientServiceError(err)
		default:
			return domain.NewPermanentServiceError(err)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500 {
			return domain.NewTransientServiceError(err)
		}
		return domain.NewPermanentServiceError(err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewTransientServiceError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewTransientServiceError(err)
	}

	return domain.NewTransientServiceError(err)
}
