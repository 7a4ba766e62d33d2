package client

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brightforge/sitechat/internal/config"
	"github.com/brightforge/sitechat/internal/service"
)

// AskCmd creates the ask command. Each invocation is a fresh
// single-turn session; multi-turn conversations go through the server,
// where sessions persist for the process lifetime.
func AskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the local index",
		Long:  "Retrieves the most relevant chunks from the local index and generates an answer grounded in them.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(args[0])
		},
	}
}

func runAsk(question string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	stack, err := buildLocalStack(cfg)
	if err != nil {
		return err
	}

	retriever := service.NewRetriever(stack.client, stack.holder, cfg.TopK)
	composer := service.NewComposer(stack.client, service.ComposerConfig{
		MaxChunks:    cfg.MaxPromptChunks,
		HistoryTurns: cfg.HistoryTurns,
		PromptBudget: cfg.PromptBudget,
	})
	chat := service.NewChatService(retriever, composer, 0)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	answer, err := chat.Ask(ctx, "", question)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range answer.Sources {
			fmt.Printf("  %s\n", src)
		}
	}
	return nil
}
