package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRobots(t *testing.T) {
	body := `# site policy
User-agent: *
Disallow: /admin
Disallow: /private/

User-agent: badbot
Disallow: /

Sitemap: https://example.com/sitemap.xml
`

	robots := ParseRobots(body, "sitechat-crawler/1.0")

	t.Run("disallow prefixes from wildcard group", func(t *testing.T) {
		assert.False(t, robots.Allowed("https://example.com/admin"))
		assert.False(t, robots.Allowed("https://example.com/admin/users"))
		assert.False(t, robots.Allowed("https://example.com/private/x"))
		assert.True(t, robots.Allowed("https://example.com/pricing"))
	})

	t.Run("other agents' rules are ignored", func(t *testing.T) {
		assert.True(t, robots.Allowed("https://example.com/anything"))
	})

	t.Run("sitemaps are collected", func(t *testing.T) {
		assert.Equal(t, []string{"https://example.com/sitemap.xml"}, robots.Sitemaps)
	})
}

func TestParseRobots_AgentSpecificGroup(t *testing.T) {
	body := `User-agent: sitechat-crawler
Disallow: /internal
`
	robots := ParseRobots(body, "sitechat-crawler/1.0")
	assert.False(t, robots.Allowed("https://example.com/internal"))
	assert.True(t, robots.Allowed("https://example.com/public"))
}

func TestRobots_EmptyAllowsEverything(t *testing.T) {
	robots := ParseRobots("", "sitechat-crawler/1.0")
	assert.True(t, robots.Allowed("https://example.com/anything"))

	var nilRobots *Robots
	assert.True(t, nilRobots.Allowed("https://example.com/anything"))
}

func TestParseSitemap(t *testing.T) {
	t.Run("urlset", func(t *testing.T) {
		body := `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b</loc></url>
</urlset>`
		pages, nested, err := ParseSitemap([]byte(body))
		assert.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, pages)
		assert.Empty(t, nested)
	})

	t.Run("sitemapindex", func(t *testing.T) {
		body := `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-pages.xml</loc></sitemap>
</sitemapindex>`
		pages, nested, err := ParseSitemap([]byte(body))
		assert.NoError(t, err)
		assert.Empty(t, pages)
		assert.Equal(t, []string{"https://example.com/sitemap-pages.xml"}, nested)
	})
}
