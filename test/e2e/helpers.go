//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brightforge/sitechat/internal/api/handlers"
	"github.com/brightforge/sitechat/internal/domain"
	"github.com/brightforge/sitechat/internal/index"
	"github.com/brightforge/sitechat/internal/scrape"
	"github.com/brightforge/sitechat/internal/server"
	"github.com/brightforge/sitechat/internal/service"
	"github.com/brightforge/sitechat/internal/store"
)

const (
	fakeModel      = "fake-embed"
	fakeDimensions = 20
)

// fakeProvider is a deterministic stand-in for the OpenAI client: the
// embedding is a hash-derived vector of the text, so identical text
// always lands on the same point, and answers echo the question.
type fakeProvider struct{}

func (p *fakeProvider) EmbeddingModel() string { return fakeModel }

func (p *fakeProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	sum := sha1.Sum([]byte(strings.ToLower(text)))
	vector := make([]float32, fakeDimensions)
	for i := range vector {
		vector[i] = float32(sum[i]) / 255.0
	}
	return vector, nil
}

func (p *fakeProvider) GenerateAnswer(ctx context.Context, turns []domain.Turn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("no turns")
	}
	return "answer: " + turns[len(turns)-1].Text, nil
}

// E2ETestEnv holds the crawl site, the wired pipeline, and the API
// server for one test.
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	DataDir    string
	Content    *store.ContentStore
	Holder     *index.Holder
	IndexSvc   *service.IndexService
	Site       *httptest.Server
	ServerURL  string
	HTTPClient *http.Client

	apiServer *httptest.Server
}

// sitePages is the fake site served to the crawler.
var sitePages = map[string]string{
	"/": `<html><head><title>Brightforge Dental</title>
<meta name="description" content="Implant clinic"></head><body>
<h1>Welcome</h1>
<p>We fit dental implants and crowns with same-week turnaround for most cases.</p>
<a href="/pricing">Pricing</a> <a href="/contact">Contact</a></body></html>`,
	"/pricing": `<html><head><title>Pricing</title></head><body>
<h1>Pricing</h1>
<p>Single Implant</p>
<p>3-5 working days</p>
<p>IDR 1.350.000 / unit</p></body></html>`,
	"/contact": `<html><head><title>Contact</title></head><body>
<h1>Contact</h1>
<p>Front Desk</p>
<p>+62 812 3456 7890</p></body></html>`,
}

// SetupE2EEnv builds the whole stack over a temp data dir and an
// in-process fake site, and starts the API server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	t.Helper()
	ctx := context.Background()
	dataDir := t.TempDir()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := sitePages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, page)
	}))

	provider := &fakeProvider{}
	content := store.NewContentStore(dataDir)
	files := index.NewFileStore(dataDir)
	holder := index.NewHolder(nil)
	builder := index.NewBuilder(files, provider, fakeDimensions, 2, 1)

	indexSvc := service.NewIndexService(content, files, builder, holder, service.DefaultChunkConfig())

	retriever := service.NewRetriever(provider, holder, 3)
	composer := service.NewComposer(provider, service.DefaultComposerConfig())
	chatSvc := service.NewChatService(retriever, composer, 6)

	router := server.NewRouter(server.RouterConfig{
		ChatHandler:  handlers.NewChatHandler(chatSvc),
		IndexHandler: handlers.NewIndexHandler(indexSvc),
		ViewsHandler: handlers.NewViewsHandler(content),
	})
	apiServer := httptest.NewServer(router)

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		DataDir:    dataDir,
		Content:    content,
		Holder:     holder,
		IndexSvc:   indexSvc,
		Site:       site,
		ServerURL:  apiServer.URL,
		HTTPClient: apiServer.Client(),
		apiServer:  apiServer,
	}
	return env
}

// Cleanup stops the servers.
func (env *E2ETestEnv) Cleanup() {
	env.apiServer.Close()
	env.Site.Close()
}

// Crawl runs the crawler against the fake site and appends the pages to
// the content store.
func (env *E2ETestEnv) Crawl() int {
	env.T.Helper()
	crawler := scrape.NewCrawler(env.Site.Client(), nil, scrape.Config{
		Seed:     env.Site.URL,
		Depth:    2,
		MaxPages: 10,
	})
	records, err := crawler.Run(env.Ctx)
	if err != nil {
		env.T.Fatalf("crawl failed: %v", err)
	}
	if err := env.Content.AppendPages(records); err != nil {
		env.T.Fatalf("failed to append pages: %v", err)
	}
	return len(records)
}

// Envelope is the API's success wrapper.
type Envelope struct {
	Data json.RawMessage `json:"data"`
}

// Post sends a JSON body and decodes the success envelope.
func (env *E2ETestEnv) Post(path string, body interface{}) (*Envelope, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	resp, err := env.HTTPClient.Post(env.ServerURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp)
}

// Get fetches a path and decodes the success envelope.
func (env *E2ETestEnv) Get(path string) (*Envelope, int, error) {
	resp, err := env.HTTPClient.Get(env.ServerURL + path)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp)
}

func decodeEnvelope(resp *http.Response) (*Envelope, int, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("bad response %q: %w", raw, err)
	}
	return &envelope, resp.StatusCode, nil
}
