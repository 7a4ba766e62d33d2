package domain

// Structured views are extracted from scraped pages and written as
// JSON documents keyed by entity name. Fields mirror what the site
// actually publishes; optional fields are pointers so json omits them.

// PriceEntry is one priced service with optional unit and lead time.
type PriceEntry struct {
	Service   string `json:"service"`
	Price     int64  `json:"price"`
	PriceRaw  string `json:"price_raw"`
	Currency  string `json:"currency"`
	Unit      string `json:"unit,omitempty"`
	LeadTime  string `json:"lead_time,omitempty"`
	Notes     string `json:"notes,omitempty"`
	SourceURL string `json:"source_url"`
}

// ContactEntry is a labelled phone number with surrounding context.
type ContactEntry struct {
	Label     string `json:"label"`
	Phone     string `json:"phone"`
	Context   string `json:"context,omitempty"`
	SourceURL string `json:"source_url"`
}

// LocationEntry is a named location with its address.
type LocationEntry struct {
	Location  string `json:"location"`
	Address   string `json:"address"`
	SourceURL string `json:"source_url"`
}

// TeamEntry is a named team with a short blurb.
type TeamEntry struct {
	Team      string `json:"team"`
	Blurb     string `json:"blurb,omitempty"`
	SourceURL string `json:"source_url"`
}

// StructuredViews bundles all extracted views for one site.
type StructuredViews struct {
	Prices    []PriceEntry
	Contacts  []ContactEntry
	Locations []LocationEntry
	Teams     []TeamEntry
}
