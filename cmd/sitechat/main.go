package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brightforge/sitechat/internal/cli"
	"github.com/brightforge/sitechat/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "sitechat",
		Short: "Sitechat CLI - site chatbot pipeline",
		Long: `Sitechat CLI runs the site chatbot pipeline: crawl a site, extract
structured views, build the embedding index and ask questions.

Environment variables use the SITECHAT_ prefix, e.g.:
  SITECHAT_OPENAI_API_KEY   OpenAI API key (required for index and ask)
  SITECHAT_DATA_DIR         Content store directory (default: data)`,
		Version: version,
	}

	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.CrawlCmd())
	rootCmd.AddCommand(client.ViewsCmd())
	rootCmd.AddCommand(client.IndexCmd())
	rootCmd.AddCommand(client.AskCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
