package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brightforge/sitechat/internal/cli"
	"github.com/brightforge/sitechat/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sitechatd",
		Short: "Sitechat daemon",
		Long:  "Sitechat daemon serving the chat, views and index API over HTTP",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
