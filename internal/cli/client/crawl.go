package client

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brightforge/sitechat/internal/config"
	"github.com/brightforge/sitechat/internal/scrape"
	"github.com/brightforge/sitechat/internal/storage"
	"github.com/brightforge/sitechat/internal/store"
)

// CrawlCmd creates the crawl command.
func CrawlCmd() *cobra.Command {
	var (
		depth    int
		maxPages int
		delay    time.Duration
		archive  bool
	)

	cmd := &cobra.Command{
		Use:   "crawl <seed-url>",
		Short: "Crawl a site into the content store",
		Long:  "Crawls a site breadth-first from the seed URL and appends the extracted pages to the content store.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(args[0], depth, maxPages, delay, archive)
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "Maximum link depth from the seed (0 uses the configured default)")
	cmd.Flags().IntVarP(&maxPages, "max-pages", "n", 0, "Maximum number of pages to fetch (0 uses the configured default)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Delay between requests (0 uses the configured default)")
	cmd.Flags().BoolVar(&archive, "archive", false, "Archive raw HTML to S3 (requires S3 configuration)")

	return cmd
}

func runCrawl(seed string, depth, maxPages int, delay time.Duration, archive bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if depth <= 0 {
		depth = cfg.CrawlDepth
	}
	if maxPages <= 0 {
		maxPages = cfg.CrawlMaxPages
	}
	if delay <= 0 {
		delay = cfg.CrawlDelay
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var archiver scrape.Archiver
	if archive {
		if !cfg.HasS3() {
			return fmt.Errorf("--archive requires S3 configuration (SITECHAT_S3_ENDPOINT)")
		}
		s3Archive, err := storage.NewArchive(ctx, storage.ArchiveConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 archive: %w", err)
		}
		if err := s3Archive.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("archiving raw HTML to bucket '%s'", cfg.S3Bucket)
		archiver = s3Archive
	}

	crawler := scrape.NewCrawler(nil, archiver, scrape.Config{
		Seed:     seed,
		Depth:    depth,
		MaxPages: maxPages,
		Delay:    delay,
	})

	records, err := crawler.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	content := store.NewContentStore(cfg.DataDir)
	if err := content.AppendPages(records); err != nil {
		return fmt.Errorf("failed to write pages: %w", err)
	}

	fmt.Printf("Crawled %d pages into %s\n", len(records), content.Dir())
	return nil
}
