package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brightforge/sitechat/internal/domain"
)

type MockViewReader struct {
	mock.Mock
}

func (m *MockViewReader) ReadView(kind string) (json.RawMessage, error) {
	args := m.Called(kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func viewRequest(kind string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/views/"+kind, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("kind", kind)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestViewsHandler_Get(t *testing.T) {
	t.Run("returns the view document", func(t *testing.T) {
		doc := json.RawMessage(`{"Zirconia Crown": {"service": "Zirconia Crown", "price": 1350000}}`)
		reader := new(MockViewReader)
		reader.On("ReadView", "prices").Return(doc, nil)

		handler := NewViewsHandler(reader)
		rec := httptest.NewRecorder()
		handler.Get(rec, viewRequest("prices"))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Zirconia Crown")
	})

	t.Run("unknown kind is a bad request", func(t *testing.T) {
		handler := NewViewsHandler(new(MockViewReader))
		rec := httptest.NewRecorder()
		handler.Get(rec, viewRequest("bogus"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing view document is not found", func(t *testing.T) {
		reader := new(MockViewReader)
		reader.On("ReadView", "teams").Return(nil, domain.ErrViewNotFound)

		handler := NewViewsHandler(reader)
		rec := httptest.NewRecorder()
		handler.Get(rec, viewRequest("teams"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
