package scrape

import (
	"html"
	"regexp"
	"strings"
	"time"
)

// Page is the extracted form of one fetched HTML document.
type Page struct {
	URL             string
	CanonicalURL    string
	Title           string
	MetaDescription string
	Headings        []string
	Text            string
	Snippet         string
	Links           []string
	RetrievedAt     time.Time
	RawHTML         []byte
}

const snippetChars = 300

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaTag           = regexp.MustCompile(`(?is)<meta\s[^>]*>`)
	metaAttr          = regexp.MustCompile(`(?is)(name|property|content)\s*=\s*"([^"]*)"`)
	canonicalLink     = regexp.MustCompile(`(?is)<link\s[^>]*rel\s*=\s*"canonical"[^>]*>`)
	hrefAttr          = regexp.MustCompile(`(?is)href\s*=\s*"([^"]*)"`)
	anchorTag         = regexp.MustCompile(`(?is)<a\s[^>]*href\s*=\s*"([^"]*)"`)
	headingTag        = regexp.MustCompile(`(?is)<h[1-3][^>]*>(.*?)</h[1-3]>`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	navTag            = regexp.MustCompile(`(?is)<(nav|footer|form)[^>]*>.*?</(nav|footer|form)>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
	multiNewlines     = regexp.MustCompile(`\n{3,}`)
	anyWhitespace     = regexp.MustCompile(`\s+`)
)

// ExtractPage parses one HTML document into its text, title, headings,
// and same-document links. Links come back raw; the crawler resolves
// and filters them.
func ExtractPage(pageURL string, body []byte, retrievedAt time.Time) *Page {
	content := string(body)

	page := &Page{
		URL:          pageURL,
		CanonicalURL: extractCanonical(content),
		Title:        extractTitle(content),
		RetrievedAt:  retrievedAt,
		RawHTML:      body,
	}
	if page.CanonicalURL == "" {
		page.CanonicalURL = pageURL
	}
	page.MetaDescription = extractMetaDescription(content)
	page.Headings = extractHeadings(content)
	page.Links = extractLinks(content)
	page.Text = stripHTML(content)
	page.Snippet = makeSnippet(page.Text)
	return page
}

func extractTitle(content string) string {
	matches := titleTag.FindStringSubmatch(content)
	if len(matches) > 1 {
		return strings.TrimSpace(html.UnescapeString(matches[1]))
	}
	return ""
}

func extractCanonical(content string) string {
	link := canonicalLink.FindString(content)
	if link == "" {
		return ""
	}
	matches := hrefAttr.FindStringSubmatch(link)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

func extractMetaDescription(content string) string {
	for _, tag := range metaTag.FindAllString(content, -1) {
		var name, value string
		for _, attr := range metaAttr.FindAllStringSubmatch(tag, -1) {
			switch strings.ToLower(attr[1]) {
			case "name", "property":
				name = strings.ToLower(attr[2])
			case "content":
				value = attr[2]
			}
		}
		if (name == "description" || name == "og:description") && value != "" {
			return strings.TrimSpace(html.UnescapeString(value))
		}
	}
	return ""
}

func extractHeadings(content string) []string {
	var headings []string
	for _, m := range headingTag.FindAllStringSubmatch(content, -1) {
		text := strings.TrimSpace(html.UnescapeString(allTags.ReplaceAllString(m[1], "")))
		if text != "" {
			headings = append(headings, text)
		}
	}
	return headings
}

func extractLinks(content string) []string {
	var links []string
	seen := make(map[string]struct{})
	for _, m := range anchorTag.FindAllStringSubmatch(content, -1) {
		href := strings.TrimSpace(m[1])
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		if strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "javascript:") {
			continue
		}
		if _, ok := seen[href]; ok {
			continue
		}
		seen[href] = struct{}{}
		links = append(links, href)
	}
	return links
}

// stripHTML removes markup and extracts readable text content.
func stripHTML(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = navTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")

	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	var result []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

func makeSnippet(text string) string {
	flat := strings.TrimSpace(anyWhitespace.ReplaceAllString(text, " "))
	runes := []rune(flat)
	if len(runes) > snippetChars {
		return string(runes[:snippetChars])
	}
	return flat
}
