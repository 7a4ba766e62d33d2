package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brightforge/sitechat/internal/domain"
	"github.com/brightforge/sitechat/internal/index"
	"github.com/brightforge/sitechat/internal/telemetry"
)

// Answer is one completed chat exchange. IndexStale flags answers
// served from an index that has drifted behind the content store.
type Answer struct {
	SessionID  string   `json:"session_id"`
	Text       string   `json:"answer"`
	Sources    []string `json:"sources,omitempty"`
	IndexStale bool     `json:"index_stale,omitempty"`
}

// StalenessSource reports the last observed drift between the content
// store and the index.
type StalenessSource interface {
	LastReport() (domain.StaleReport, time.Time)
}

type chatSession struct {
	mu      sync.Mutex
	session *domain.ConversationSession
}

// ChatService runs retrieval-augmented conversations. Each session
// serializes its own queries behind a per-session mutex; different
// sessions run fully in parallel. History is appended only after an
// exchange completes, so a cancelled or failed query leaves the
// session exactly as it was.
type ChatService struct {
	retriever *Retriever
	composer  *Composer
	capacity  int
	staleness StalenessSource

	mu       sync.Mutex
	sessions map[string]*chatSession
}

func NewChatService(retriever *Retriever, composer *Composer, historyCapacity int) *ChatService {
	if historyCapacity <= 0 {
		historyCapacity = domain.DefaultSessionCapacity
	}
	return &ChatService{
		retriever: retriever,
		composer:  composer,
		capacity:  historyCapacity,
		sessions:  make(map[string]*chatSession),
	}
}

// WithStaleness flags answers with the drift last seen by the given
// source.
func (s *ChatService) WithStaleness(source StalenessSource) *ChatService {
	s.staleness = source
	return s
}

// CreateSession starts a new conversation and returns its id.
func (s *ChatService) CreateSession() string {
	id := uuid.New().String()
	s.mu.Lock()
	s.sessions[id] = &chatSession{session: domain.NewConversationSession(id, s.capacity)}
	s.mu.Unlock()
	return id
}

// History returns a copy of the session's turns, oldest first.
func (s *ChatService) History(sessionID string) ([]domain.Turn, error) {
	cs, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.session.History(), nil
}

// Ask answers one question in a session. An empty session id starts a
// new session. The user turn and the assistant turn are appended
// together after generation succeeds; on any error the history is
// untouched.
func (s *ChatService) Ask(ctx context.Context, sessionID, question string) (*Answer, error) {
	if sessionID == "" {
		sessionID = s.CreateSession()
	}
	cs, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "ChatService.Ask", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "ask",
	})
	defer span.End()

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	history := cs.session.History()
	text, err := s.composer.Compose(ctx, question, matches, history)
	if err != nil {
		return nil, err
	}

	cs.session.Append(domain.RoleUser, question)
	cs.session.Append(domain.RoleAssistant, text)

	answer := &Answer{
		SessionID: sessionID,
		Text:      text,
		Sources:   sourceURLs(matches),
	}
	if s.staleness != nil {
		if report, checkedAt := s.staleness.LastReport(); !checkedAt.IsZero() && report.IsStale() {
			answer.IndexStale = true
		}
	}
	return answer, nil
}

func (s *ChatService) lookup(sessionID string) (*chatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cs, nil
}

// sourceURLs lists the distinct source ids behind the matches, in
// score order.
func sourceURLs(matches []index.Match) []string {
	seen := make(map[string]struct{}, len(matches))
	var sources []string
	for _, m := range matches {
		if _, ok := seen[m.Chunk.SourceID]; ok {
			continue
		}
		seen[m.Chunk.SourceID] = struct{}{}
		sources = append(sources, m.Chunk.SourceID)
	}
	return sources
}
