// Package views extracts structured facts (prices, contacts, locations,
// teams) from scraped page text. Extraction is line-oriented: short
// lines without sentence punctuation act as section headings and give
// names to the prices and blurbs that follow them.
package views

import (
	"regexp"
	"strings"

	"github.com/brightforge/sitechat/internal/domain"
)

var (
	currencyRx = regexp.MustCompile(`(?i)\b(?:idr|rp\.?)\s*([0-9][\d.,]*)`)
	unitRx     = regexp.MustCompile(`(?i)/\s*(units?|implant|cervical|first\s*\d+\s*(?:units|cervical))\b`)
	leadRx     = regexp.MustCompile(`(?i)\b(\d+\s*-\s*\d+|\d+)\s*working\s*days\b`)
	phoneRx    = regexp.MustCompile(`\+?\d[\d\s\-]{7,}\d`)
	digitsRx   = regexp.MustCompile(`[^\d]`)
	spacesRx   = regexp.MustCompile(`\s+`)

	genericHeadingRx = regexp.MustCompile(`(?i)\b(pricing|our pricing|portfolio|our portfolio|team|our team|about|about us|core values|core|loyalty|warranty|contact|get in touch|excellence|collaboration|maximize benefit|doctor)\b`)
)

const (
	maxServiceChars = 100
	maxNotesChars   = 300
	maxBlurbChars   = 500
	maxHeadingChars = 80
	maxAddressLines = 3
)

// knownTeams limits team extraction to names the site actually uses, to
// avoid capturing arbitrary capitalized headings.
var knownTeams = map[string]struct{}{
	"EXCEL": {}, "MARVEL": {}, "FASCINA": {}, "ADMIN": {},
	"BALI": {}, "JAKARTA": {}, "MAGNI": {},
}

// knownCities are the branch cities whose headings open address blocks.
var knownCities = []string{"MEDAN", "BALI", "JAKARTA"}

// Extractor pulls structured views out of page records for one brand.
// Brand is the name that prefixes city and team headings, e.g.
// "BRIGHTFORGE" for headings like "BRIGHTFORGE MEDAN".
type Extractor struct {
	brand  string
	cityRx *regexp.Regexp
	teamRx *regexp.Regexp
}

func NewExtractor(brand string) *Extractor {
	brand = strings.TrimSpace(brand)
	prefix := ""
	if brand != "" {
		prefix = regexp.QuoteMeta(brand) + `\s+`
	}
	return &Extractor{
		brand:  strings.ToUpper(brand),
		cityRx: regexp.MustCompile(`(?i)^` + prefix + `(` + strings.Join(knownCities, "|") + `)\b`),
		teamRx: regexp.MustCompile(`(?i)\b` + prefix + `([A-Za-z]+)`),
	}
}

// Extract builds all structured views from page records. Records that
// are not pages are skipped.
func (e *Extractor) Extract(records []domain.RawRecord) domain.StructuredViews {
	var views domain.StructuredViews
	for _, r := range records {
		if r.Kind != domain.RecordKindPage {
			continue
		}
		lines := splitLines(r.Text)
		views.Prices = append(views.Prices, e.extractPrices(lines, r.SourceID)...)
		contacts, locations := e.extractContactsLocations(lines, r.SourceID)
		views.Contacts = append(views.Contacts, contacts...)
		views.Locations = append(views.Locations, locations...)
		views.Teams = append(views.Teams, e.extractTeams(lines, r.SourceID)...)
	}

	views.Prices = dedupPrices(views.Prices)
	views.Contacts = dedupContacts(views.Contacts)
	views.Locations = dedupLocations(views.Locations)
	views.Teams = dedupTeams(views.Teams)
	return views
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimSpace(l))
	}
	return lines
}

// isHeading treats a short line without closing punctuation as a
// section heading. Scraped text has no markup left, so this stands in
// for the heading tags the page originally used.
func isHeading(line string) bool {
	runes := []rune(line)
	if len(runes) == 0 || len(runes) > maxHeadingChars {
		return false
	}
	return !strings.ContainsRune(".!?:;,", runes[len(runes)-1])
}

func (e *Extractor) extractPrices(lines []string, sourceURL string) []domain.PriceEntry {
	var prices []domain.PriceEntry

	var service string
	var pendingNotes []string
	var pendingLead string
	additional := false

	addPrice := func(text string) {
		if service == "" {
			return
		}
		amount, raw := priceFromText(text)
		if amount == 0 {
			return
		}
		name := service
		if additional {
			name += " (additional)"
		}
		lead := leadFromText(text)
		if lead == "" {
			lead = pendingLead
		}
		prices = append(prices, domain.PriceEntry{
			Service:   truncate(name, maxServiceChars),
			Price:     amount,
			PriceRaw:  raw,
			Currency:  "IDR",
			Unit:      unitFromText(text),
			LeadTime:  lead,
			Notes:     truncate(strings.Join(pendingNotes, "; "), maxNotesChars),
			SourceURL: sourceURL,
		})
		pendingNotes = nil
		additional = false
	}

	for _, line := range lines {
		if line == "" {
			continue
		}

		if isHeading(line) {
			if lead := leadFromText(line); lead != "" && !currencyRx.MatchString(line) {
				pendingLead = lead
				continue
			}
			if currencyRx.MatchString(line) {
				addPrice(line)
				continue
			}
			if strings.EqualFold(line, "additional") {
				additional = true
				continue
			}
			if !genericHeadingRx.MatchString(line) {
				service = line
				pendingNotes = nil
				pendingLead = ""
				additional = false
			}
			continue
		}

		if lead := leadFromText(line); lead != "" {
			pendingLead = lead
		}
		if currencyRx.MatchString(line) {
			addPrice(line)
		} else if service != "" {
			pendingNotes = append(pendingNotes, spacesRx.ReplaceAllString(line, " "))
		}
	}
	return prices
}

func (e *Extractor) extractContactsLocations(lines []string, sourceURL string) ([]domain.ContactEntry, []domain.LocationEntry) {
	var contacts []domain.ContactEntry
	var locations []domain.LocationEntry

	lastHeading := ""
	for i, line := range lines {
		if line == "" {
			continue
		}

		if isHeading(line) && !phoneRx.MatchString(line) {
			lastHeading = line
			if e.cityRx.MatchString(line) {
				var addr []string
				for j := i + 1; j <= i+maxAddressLines && j < len(lines); j++ {
					if lines[j] == "" || isHeading(lines[j]) {
						break
					}
					addr = append(addr, lines[j])
				}
				if len(addr) > 0 {
					locations = append(locations, domain.LocationEntry{
						Location:  strings.ToUpper(line),
						Address:   strings.Join(addr, " "),
						SourceURL: sourceURL,
					})
				}
			}
			continue
		}

		for _, phone := range phoneRx.FindAllString(line, -1) {
			label := lastHeading
			if label == "" {
				label = "Phone"
			}
			context := ""
			if i > 0 {
				context = lines[i-1]
			}
			contacts = append(contacts, domain.ContactEntry{
				Label:     label,
				Phone:     spacesRx.ReplaceAllString(phone, ""),
				Context:   context,
				SourceURL: sourceURL,
			})
		}
	}
	return contacts, locations
}

func (e *Extractor) extractTeams(lines []string, sourceURL string) []domain.TeamEntry {
	var teams []domain.TeamEntry

	current := ""
	var blurb []string

	flush := func() {
		if current == "" {
			return
		}
		teams = append(teams, domain.TeamEntry{
			Team:      current,
			Blurb:     truncate(strings.Join(blurb, " "), maxBlurbChars),
			SourceURL: sourceURL,
		})
		current = ""
		blurb = nil
	}

	for _, line := range lines {
		if line == "" {
			continue
		}
		if isHeading(line) {
			flush()
			m := e.teamRx.FindStringSubmatch(line)
			if m != nil {
				name := strings.ToUpper(m[1])
				if _, ok := knownTeams[name]; ok {
					if e.brand != "" {
						current = e.brand + " " + name
					} else {
						current = name
					}
				}
			}
			continue
		}
		if current != "" {
			blurb = append(blurb, spacesRx.ReplaceAllString(line, " "))
		}
	}
	flush()
	return teams
}

func priceFromText(text string) (int64, string) {
	m := currencyRx.FindStringSubmatch(text)
	if m == nil {
		return 0, ""
	}
	digits := digitsRx.ReplaceAllString(m[1], "")
	if digits == "" {
		return 0, ""
	}
	var amount int64
	for _, d := range digits {
		amount = amount*10 + int64(d-'0')
	}
	return amount, m[0]
}

func leadFromText(text string) string {
	m := leadRx.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], " ", "")
}

func unitFromText(text string) string {
	m := unitRx.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(m[1]))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max])
	}
	return s
}

func dedupPrices(in []domain.PriceEntry) []domain.PriceEntry {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, p := range in {
		key := p.Service + "|" + p.PriceRaw + "|" + p.Unit + "|" + p.SourceURL
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func dedupContacts(in []domain.ContactEntry) []domain.ContactEntry {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, c := range in {
		key := c.Label + "|" + c.Phone + "|" + c.SourceURL
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func dedupLocations(in []domain.LocationEntry) []domain.LocationEntry {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, l := range in {
		key := l.Location + "|" + l.Address + "|" + l.SourceURL
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

func dedupTeams(in []domain.TeamEntry) []domain.TeamEntry {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, t := range in {
		key := t.Team + "|" + t.SourceURL
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
