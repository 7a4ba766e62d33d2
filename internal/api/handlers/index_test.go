package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brightforge/sitechat/internal/index"
	"github.com/brightforge/sitechat/internal/service"
)

type MockIndexService struct {
	mock.Mock
}

func (m *MockIndexService) Status(ctx context.Context) (*service.IndexStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IndexStatus), args.Error(1)
}

func (m *MockIndexService) Rebuild(ctx context.Context) (*index.BuildReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*index.BuildReport), args.Error(1)
}

func TestIndexHandler_Status(t *testing.T) {
	t.Run("reports staleness", func(t *testing.T) {
		svc := new(MockIndexService)
		svc.On("Status", mock.Anything).Return(&service.IndexStatus{
			Model:      "test-model",
			Chunks:     42,
			BuildCount: 3,
			Stale:      true,
			Missing:    2,
		}, nil)

		handler := NewIndexHandler(svc)
		req := httptest.NewRequest(http.MethodGet, "/index/status", nil)
		rec := httptest.NewRecorder()
		handler.Status(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data service.IndexStatus `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Data.Stale)
		assert.Equal(t, 2, resp.Data.Missing)
		assert.Equal(t, int64(3), resp.Data.BuildCount)
	})
}

func TestIndexHandler_Rebuild(t *testing.T) {
	t.Run("returns the build report", func(t *testing.T) {
		svc := new(MockIndexService)
		svc.On("Rebuild", mock.Anything).Return(&index.BuildReport{
			Model:      "test-model",
			BuildCount: 4,
			BuiltAt:    time.Now().UTC(),
			Embedded:   10,
			Reused:     32,
			Failed:     []string{"chunk-x"},
		}, nil)

		handler := NewIndexHandler(svc)
		req := httptest.NewRequest(http.MethodPost, "/index/rebuild", nil)
		rec := httptest.NewRecorder()
		handler.Rebuild(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data index.BuildReport `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 10, resp.Data.Embedded)
		assert.Equal(t, []string{"chunk-x"}, resp.Data.Failed)
	})

	t.Run("build failure surfaces the error", func(t *testing.T) {
		svc := new(MockIndexService)
		svc.On("Rebuild", mock.Anything).Return(nil, assert.AnError)

		handler := NewIndexHandler(svc)
		req := httptest.NewRequest(http.MethodPost, "/index/rebuild", nil)
		rec := httptest.NewRecorder()
		handler.Rebuild(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
