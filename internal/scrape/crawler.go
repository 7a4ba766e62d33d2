package scrape

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/brightforge/sitechat/internal/domain"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; sitechat-crawler/1.0)"
	maxBodyBytes     = 8 * 1024 * 1024
)

// Archiver stores raw page bytes, typically in object storage, so
// extraction can be re-run later without re-crawling.
type Archiver interface {
	ArchivePage(ctx context.Context, pageURL string, body []byte) error
}

// Config controls one crawl run.
type Config struct {
	Seed      string
	Depth     int
	MaxPages  int
	Delay     time.Duration
	UserAgent string
}

// Crawler walks a site breadth-first from a seed URL, staying on the
// seed's site, and produces one page record per fetched page.
type Crawler struct {
	client  *http.Client
	archive Archiver
	cfg     Config
}

func NewCrawler(client *http.Client, archive Archiver, cfg Config) *Crawler {
	if client == nil {
		client = &http.Client{Timeout: 25 * time.Second}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 200
	}
	return &Crawler{client: client, archive: archive, cfg: cfg}
}

type queueItem struct {
	url   string
	depth int
}

// Run crawls until the frontier is exhausted, MaxPages is reached, or
// the context is cancelled. Fetch failures skip the page rather than
// aborting the crawl.
func (c *Crawler) Run(ctx context.Context) ([]domain.RawRecord, error) {
	seed, err := NormalizeURL(c.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}

	robots := c.loadRobots(ctx, seed)

	frontier := []queueItem{{url: seed, depth: 0}}
	seen := map[string]struct{}{seed: {}}
	for _, u := range c.sitemapURLs(ctx, seed, robots) {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		frontier = append(frontier, queueItem{url: u, depth: 0})
	}

	var records []domain.RawRecord
	for len(frontier) > 0 && len(records) < c.cfg.MaxPages {
		if err := c.pause(ctx); err != nil {
			return records, err
		}

		item := frontier[0]
		frontier = frontier[1:]

		if !robots.Allowed(item.url) {
			continue
		}

		body, err := c.fetchHTML(ctx, item.url)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			log.Printf("Skipping %s: %v", item.url, err)
			continue
		}

		page := ExtractPage(item.url, body, time.Now().UTC())
		if c.archive != nil {
			if err := c.archive.ArchivePage(ctx, item.url, body); err != nil {
				log.Printf("Failed to archive %s: %v", item.url, err)
			}
		}
		records = append(records, pageRecord(page))

		if item.depth >= c.cfg.Depth {
			continue
		}
		for _, href := range page.Links {
			resolved, err := ResolveURL(item.url, href)
			if err != nil || !SameSite(seed, resolved) {
				continue
			}
			if _, ok := seen[resolved]; ok {
				continue
			}
			seen[resolved] = struct{}{}
			frontier = append(frontier, queueItem{url: resolved, depth: item.depth + 1})
		}
	}

	log.Printf("Crawl complete: %d pages from %s", len(records), seed)
	return records, nil
}

func pageRecord(page *Page) domain.RawRecord {
	canonical := page.CanonicalURL
	if normalized, err := NormalizeURL(canonical); err == nil {
		canonical = normalized
	}

	meta := map[string]string{"url": page.URL}
	if page.MetaDescription != "" {
		meta["description"] = page.MetaDescription
	}
	if len(page.Headings) > 0 {
		meta["headings"] = strings.Join(page.Headings, " | ")
	}
	if page.Snippet != "" {
		meta["snippet"] = page.Snippet
	}

	return domain.RawRecord{
		SourceID:    canonical,
		Kind:        domain.RecordKindPage,
		Title:       page.Title,
		Text:        page.Text,
		RetrievedAt: page.RetrievedAt,
		Meta:        meta,
	}
}

func (c *Crawler) pause(ctx context.Context) error {
	if c.cfg.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Crawler) fetchHTML(ctx context.Context, pageURL string) ([]byte, error) {
	body, contentType, err := c.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return nil, fmt.Errorf("not html: %s", contentType)
	}
	return body, nil
}

func (c *Crawler) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Crawler) loadRobots(ctx context.Context, seed string) *Robots {
	u, err := url.Parse(seed)
	if err != nil {
		return &Robots{}
	}
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return &Robots{}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return &Robots{}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &Robots{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Robots{}
	}
	return ParseRobots(string(body), c.cfg.UserAgent)
}

// sitemapURLs collects same-site page URLs from robots-declared
// sitemaps and the conventional /sitemap.xml, following one level of
// sitemap index nesting.
func (c *Crawler) sitemapURLs(ctx context.Context, seed string, robots *Robots) []string {
	u, err := url.Parse(seed)
	if err != nil {
		return nil
	}

	candidates := append([]string{}, robots.Sitemaps...)
	candidates = append(candidates, u.Scheme+"://"+u.Host+"/sitemap.xml")

	collected := make(map[string]struct{})
	for _, smURL := range candidates {
		pages, nested, err := c.fetchSitemap(ctx, smURL)
		if err != nil {
			continue
		}
		for _, n := range nested {
			subPages, _, err := c.fetchSitemap(ctx, n)
			if err != nil {
				continue
			}
			pages = append(pages, subPages...)
		}
		for _, p := range pages {
			normalized, err := NormalizeURL(p)
			if err != nil || !SameSite(seed, normalized) {
				continue
			}
			collected[normalized] = struct{}{}
		}
	}

	urls := make([]string, 0, len(collected))
	for u := range collected {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func (c *Crawler) fetchSitemap(ctx context.Context, smURL string) (pages, nested []string, err error) {
	body, contentType, err := c.fetch(ctx, smURL)
	if err != nil {
		return nil, nil, err
	}
	if !strings.Contains(contentType, "xml") {
		return nil, nil, fmt.Errorf("not xml: %s", contentType)
	}
	return ParseSitemap(body)
}
