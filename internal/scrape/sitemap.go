package scrape

import (
	"encoding/xml"
)

type sitemapDoc struct {
	XMLName  xml.Name     `xml:""`
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// ParseSitemap extracts page URLs and nested sitemap URLs from a
// sitemap.xml document. Handles both urlset and sitemapindex roots.
func ParseSitemap(body []byte) (pages []string, nested []string, err error) {
	var doc sitemapDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, nil, err
	}
	for _, u := range doc.URLs {
		if u.Loc != "" {
			pages = append(pages, u.Loc)
		}
	}
	for _, s := range doc.Sitemaps {
		if s.Loc != "" {
			nested = append(nested, s.Loc)
		}
	}
	return pages, nested, nil
}
