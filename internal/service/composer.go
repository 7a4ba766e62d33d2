package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/brightforge/sitechat/internal/domain"
	"github.com/brightforge/sitechat/internal/index"
)

const systemInstructions = `You are a helpful assistant answering questions about one company's website.
Answer only from the provided context. If the context does not contain the answer, say so.
Cite the source URL of the passages you used.`

// AnswerGenerator produces a completion for a conversation.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, turns []domain.Turn) (string, error)
}

// ComposerConfig bounds the prompt the composer assembles.
type ComposerConfig struct {
	// MaxChunks caps how many retrieved chunks go into the prompt.
	MaxChunks int
	// HistoryTurns caps how many trailing conversation turns go in.
	HistoryTurns int
	// PromptBudget is the total prompt size in runes. Zero disables
	// the budget.
	PromptBudget int
}

func DefaultComposerConfig() ComposerConfig {
	return ComposerConfig{MaxChunks: 6, HistoryTurns: 20, PromptBudget: 12000}
}

// Composer assembles the generation prompt from retrieved chunks and
// conversation history, and runs the single generation call.
type Composer struct {
	generator AnswerGenerator
	cfg       ComposerConfig
}

func NewComposer(generator AnswerGenerator, cfg ComposerConfig) *Composer {
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = DefaultComposerConfig().MaxChunks
	}
	return &Composer{generator: generator, cfg: cfg}
}

// Compose builds the prompt and generates an answer. When the prompt
// would exceed the budget, the lowest-scored chunks are dropped first;
// every drop is logged. If the prompt is still over budget with a
// single chunk, or with none, PromptTooLarge is returned. A transient
// generation failure is retried once; any other failure is surfaced as
// GenerationFailed.
func (c *Composer) Compose(ctx context.Context, question string, matches []index.Match, history []domain.Turn) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", domain.ErrMissingQuery
	}

	if len(matches) > c.cfg.MaxChunks {
		matches = matches[:c.cfg.MaxChunks]
	}
	if c.cfg.HistoryTurns > 0 && len(history) > c.cfg.HistoryTurns {
		history = history[len(history)-c.cfg.HistoryTurns:]
	}

	turns, err := c.buildTurns(question, matches, history)
	if err != nil {
		return "", err
	}

	answer, err := c.generator.GenerateAnswer(ctx, turns)
	if err != nil && domain.IsTransient(err) && ctx.Err() == nil {
		log.Printf("Generation failed transiently, retrying once: %v", err)
		answer, err = c.generator.GenerateAnswer(ctx, turns)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.NewGenerationFailed(err)
	}
	return answer, nil
}

// buildTurns assembles the message list, dropping lowest-scored chunks
// until the prompt fits the budget. Matches arrive in descending score
// order, so dropping from the tail always removes the weakest context
// first.
func (c *Composer) buildTurns(question string, matches []index.Match, history []domain.Turn) ([]domain.Turn, error) {
	for {
		turns := assembleTurns(question, matches, history)
		if c.cfg.PromptBudget <= 0 || promptSize(turns) <= c.cfg.PromptBudget {
			return turns, nil
		}
		if len(matches) == 0 {
			return nil, domain.ErrPromptTooLarge
		}
		dropped := matches[len(matches)-1]
		matches = matches[:len(matches)-1]
		log.Printf("Prompt over budget, dropping chunk %s (score %.4f)", dropped.Chunk.ID, dropped.Score)
	}
}

func assembleTurns(question string, matches []index.Match, history []domain.Turn) []domain.Turn {
	var sb strings.Builder
	sb.WriteString(systemInstructions)
	if len(matches) > 0 {
		sb.WriteString("\n\nContext:\n")
		for _, m := range matches {
			fmt.Fprintf(&sb, "\n[Source: %s]\n%s\n", m.Chunk.SourceID, m.Chunk.Text)
		}
	}

	turns := make([]domain.Turn, 0, len(history)+2)
	turns = append(turns, domain.Turn{Role: domain.RoleSystem, Text: sb.String()})
	turns = append(turns, history...)
	turns = append(turns, domain.Turn{Role: domain.RoleUser, Text: question})
	return turns
}

func promptSize(turns []domain.Turn) int {
	total := 0
	for _, t := range turns {
		total += len([]rune(t.Text))
	}
	return total
}
