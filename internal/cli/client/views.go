package client

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brightforge/sitechat/internal/config"
	"github.com/brightforge/sitechat/internal/store"
	"github.com/brightforge/sitechat/internal/views"
)

// ViewsCmd creates the views command.
func ViewsCmd() *cobra.Command {
	var brand string

	cmd := &cobra.Command{
		Use:   "views",
		Short: "Extract structured views from crawled pages",
		Long:  "Scans the crawled pages for prices, contacts, locations and teams and writes them as structured view documents.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViews(brand)
		},
	}

	cmd.Flags().StringVarP(&brand, "brand", "b", "", "Brand name used to recognize city and team headings")

	return cmd
}

func runViews(brand string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	content := store.NewContentStore(cfg.DataDir)
	records, err := content.ReadPages()
	if err != nil {
		return fmt.Errorf("failed to read pages: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no pages in %s, run crawl first", content.Dir())
	}

	extractor := views.NewExtractor(brand)
	extracted := extractor.Extract(records)

	if err := content.WriteViews(extracted); err != nil {
		return fmt.Errorf("failed to write views: %w", err)
	}

	fmt.Printf("Extracted %d prices, %d contacts, %d locations, %d teams\n",
		len(extracted.Prices), len(extracted.Contacts), len(extracted.Locations), len(extracted.Teams))
	return nil
}
