package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brightforge/sitechat/internal/domain"
	"github.com/brightforge/sitechat/internal/index"
)

type MockAnswerGenerator struct {
	mock.Mock
}

func (m *MockAnswerGenerator) GenerateAnswer(ctx context.Context, turns []domain.Turn) (string, error) {
	args := m.Called(ctx, turns)
	return args.String(0), args.Error(1)
}

func matchFor(id, text string, score float64) index.Match {
	return index.Match{
		Chunk: domain.Chunk{ID: id, SourceID: "https://example.com/" + id, Text: text},
		Score: score,
	}
}

func TestComposer_Compose(t *testing.T) {
	ctx := context.Background()

	t.Run("prompt carries context history and question", func(t *testing.T) {
		generator := new(MockAnswerGenerator)
		var captured []domain.Turn
		generator.On("GenerateAnswer", ctx, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(1).([]domain.Turn) }).
			Return("the answer", nil)

		composer := NewComposer(generator, DefaultComposerConfig())
		history := []domain.Turn{
			{Role: domain.RoleUser, Text: "earlier question"},
			{Role: domain.RoleAssistant, Text: "earlier answer"},
		}
		answer, err := composer.Compose(ctx, "what does it cost?", []index.Match{matchFor("a", "costs Rp 100", 0.9)}, history)
		require.NoError(t, err)
		assert.Equal(t, "the answer", answer)

		require.Len(t, captured, 4)
		assert.Equal(t, domain.RoleSystem, captured[0].Role)
		assert.Contains(t, captured[0].Text, "costs Rp 100")
		assert.Contains(t, captured[0].Text, "https://example.com/a")
		assert.Equal(t, "earlier question", captured[1].Text)
		assert.Equal(t, "earlier answer", captured[2].Text)
		assert.Equal(t, domain.RoleUser, captured[3].Role)
		assert.Equal(t, "what does it cost?", captured[3].Text)
	})

	t.Run("empty question is rejected", func(t *testing.T) {
		composer := NewComposer(new(MockAnswerGenerator), DefaultComposerConfig())
		_, err := composer.Compose(ctx, " ", nil, nil)
		assert.ErrorIs(t, err, domain.ErrMissingQuery)
	})

	t.Run("lowest scored chunks are dropped to fit the budget", func(t *testing.T) {
		generator := new(MockAnswerGenerator)
		var captured []domain.Turn
		generator.On("GenerateAnswer", ctx, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(1).([]domain.Turn) }).
			Return("ok", nil)

		cfg := ComposerConfig{MaxChunks: 6, PromptBudget: len(systemInstructions) + 300}
		composer := NewComposer(generator, cfg)

		matches := []index.Match{
			matchFor("best", strings.Repeat("a", 100), 0.9),
			matchFor("mid", strings.Repeat("b", 100), 0.5),
			matchFor("worst", strings.Repeat("c", 100), 0.1),
		}
		_, err := composer.Compose(ctx, "q", matches, nil)
		require.NoError(t, err)

		assert.Contains(t, captured[0].Text, strings.Repeat("a", 100))
		assert.NotContains(t, captured[0].Text, strings.Repeat("c", 100))
	})

	t.Run("truncation is deterministic", func(t *testing.T) {
		cfg := ComposerConfig{MaxChunks: 6, PromptBudget: len(systemInstructions) + 300}
		matches := []index.Match{
			matchFor("best", strings.Repeat("a", 100), 0.9),
			matchFor("mid", strings.Repeat("b", 100), 0.5),
			matchFor("worst", strings.Repeat("c", 100), 0.1),
		}

		var prompts []string
		for i := 0; i < 3; i++ {
			generator := new(MockAnswerGenerator)
			generator.On("GenerateAnswer", ctx, mock.Anything).
				Run(func(args mock.Arguments) {
					prompts = append(prompts, args.Get(1).([]domain.Turn)[0].Text)
				}).
				Return("ok", nil)
			_, err := NewComposer(generator, cfg).Compose(ctx, "q", matches, nil)
			require.NoError(t, err)
		}
		assert.Equal(t, prompts[0], prompts[1])
		assert.Equal(t, prompts[1], prompts[2])
	})

	t.Run("bare prompt over budget returns prompt too large", func(t *testing.T) {
		cfg := ComposerConfig{MaxChunks: 6, PromptBudget: 10}
		composer := NewComposer(new(MockAnswerGenerator), cfg)

		_, err := composer.Compose(ctx, "a question that cannot fit", nil, nil)
		assert.ErrorIs(t, err, domain.ErrPromptTooLarge)
	})

	t.Run("transient failure is retried exactly once", func(t *testing.T) {
		generator := new(MockAnswerGenerator)
		generator.On("GenerateAnswer", ctx, mock.Anything).
			Return("", domain.NewTransientServiceError(assert.AnError)).Once()
		generator.On("GenerateAnswer", ctx, mock.Anything).
			Return("recovered", nil).Once()

		composer := NewComposer(generator, DefaultComposerConfig())
		answer, err := composer.Compose(ctx, "q", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "recovered", answer)
		generator.AssertExpectations(t)
	})

	t.Run("second transient failure becomes generation failed", func(t *testing.T) {
		generator := new(MockAnswerGenerator)
		generator.On("GenerateAnswer", ctx, mock.Anything).
			Return("", domain.NewTransientServiceError(assert.AnError)).Twice()

		composer := NewComposer(generator, DefaultComposerConfig())
		_, err := composer.Compose(ctx, "q", nil, nil)
		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeGenerationFailed, domain.ErrorCode(err))
		generator.AssertExpectations(t)
	})

	t.Run("permanent failure is not retried", func(t *testing.T) {
		generator := new(MockAnswerGenerator)
		generator.On("GenerateAnswer", ctx, mock.Anything).
			Return("", domain.NewPermanentServiceError(assert.AnError)).Once()

		composer := NewComposer(generator, DefaultComposerConfig())
		_, err := composer.Compose(ctx, "q", nil, nil)
		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeGenerationFailed, domain.ErrorCode(err))
		generator.AssertExpectations(t)
	})

	t.Run("history is capped to the trailing turns", func(t *testing.T) {
		generator := new(MockAnswerGenerator)
		var captured []domain.Turn
		generator.On("GenerateAnswer", ctx, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(1).([]domain.Turn) }).
			Return("ok", nil)

		cfg := ComposerConfig{MaxChunks: 6, HistoryTurns: 2, PromptBudget: 0}
		composer := NewComposer(generator, cfg)

		history := []domain.Turn{
			{Role: domain.RoleUser, Text: "one"},
			{Role: domain.RoleAssistant, Text: "two"},
			{Role: domain.RoleUser, Text: "three"},
			{Role: domain.RoleAssistant, Text: "four"},
		}
		_, err := composer.Compose(ctx, "q", nil, history)
		require.NoError(t, err)

		require.Len(t, captured, 4)
		assert.Equal(t, "three", captured[1].Text)
		assert.Equal(t, "four", captured[2].Text)
	})
}
