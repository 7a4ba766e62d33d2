package openai

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brightforge/sitechat/internal/domain"
)

// MockEmbeddingAPI is a mock for the embedding API
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockChatAPI is a mock for the chat API
type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: 4, embeddingModel: DefaultEmbeddingModel}

	ctx := context.Background()
	text := "This is a test document about dental crowns."
	expected := [][]float32{{0.1, 0.2, 0.3, 0.4}}

	mockAPI.On("CreateEmbeddings", ctx, []string{text}).Return(expected, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.NoError(t, err)
	assert.Equal(t, expected[0], embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbeddings_Batch(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: 2}

	ctx := context.Background()
	texts := []string{"first", "second", "third"}
	expected := [][]float32{{1, 0}, {0, 1}, {1, 1}}

	mockAPI.On("CreateEmbeddings", ctx, texts).Return(expected, nil)

	vectors, err := client.GenerateEmbeddings(ctx, texts)

	require.NoError(t, err)
	assert.Equal(t, expected, vectors)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.GenerateEmbedding(context.Background(), "")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: 1536}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return([][]float32{make([]float32, 512)}, nil)

	embedding, err := client.GenerateEmbedding(ctx, "text")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, ErrWrongDimensions)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{"rate limit is transient", &openai.APIError{HTTPStatusCode: 429}, true},
		{"server error is transient", &openai.APIError{HTTPStatusCode: 503}, true},
		{"auth failure is permanent", &openai.APIError{HTTPStatusCode: 401}, false},
		{"bad request is permanent", &openai.APIError{HTTPStatusCode: 400}, false},
		{"deadline exceeded is transient", context.DeadlineExceeded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAPI := new(MockEmbeddingAPI)
			client := &Client{embeddings: mockAPI, dimensions: 4}

			ctx := context.Background()
			mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return(nil, tt.err)

			_, err := client.GenerateEmbedding(ctx, "text")

			require.Error(t, err)
			assert.Equal(t, tt.wantTransient, domain.IsTransient(err))
			mockAPI.AssertExpectations(t)
		})
	}
}

func TestClient_GenerateAnswer(t *testing.T) {
	t.Run("maps turns to chat messages", func(t *testing.T) {
		mockChat := new(MockChatAPI)
		client := &Client{chat: mockChat}

		ctx := context.Background()
		turns := []domain.Turn{
			{Role: domain.RoleSystem, Text: "You answer questions about the site."},
			{Role: domain.RoleUser, Text: "How much is a crown?"},
		}
		expected := []openai.ChatCompletionMessage{
			{Role: "system", Content: "You answer questions about the site."},
			{Role: "user", Content: "How much is a crown?"},
		}

		mockChat.On("CreateChatCompletion", ctx, expected).Return("A crown costs IDR 1.350.000.", nil)

		answer, err := client.GenerateAnswer(ctx, turns)

		require.NoError(t, err)
		assert.Equal(t, "A crown costs IDR 1.350.000.", answer)
		mockChat.AssertExpectations(t)
	})

	t.Run("classifies provider failures", func(t *testing.T) {
		mockChat := new(MockChatAPI)
		client := &Client{chat: mockChat}

		ctx := context.Background()
		mockChat.On("CreateChatCompletion", ctx, mock.Anything).Return("", &openai.APIError{HTTPStatusCode: 429})

		_, err := client.GenerateAnswer(ctx, []domain.Turn{{Role: domain.RoleUser, Text: "hi"}})

		require.Error(t, err)
		assert.True(t, domain.IsTransient(err))
	})

	t.Run("empty conversation fails", func(t *testing.T) {
		client := NewClient("key")
		_, err := client.GenerateAnswer(context.Background(), nil)
		assert.Equal(t, ErrEmptyText, err)
	})
}

func TestNewClientWithConfig_Defaults(t *testing.T) {
	client := NewClientWithConfig(Config{APIKey: "k"})

	assert.Equal(t, DefaultEmbeddingModel, client.EmbeddingModel())
	assert.Equal(t, DefaultEmbeddingDimensions, client.dimensions)
}
