package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brightforge/sitechat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusOK, map[string]string{"answer": "hello"})

	assert.Equal(t, http.StatusOK, w.Code)

	var result SuccessResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "hello", data["answer"])
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "invalid input")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "invalid input", result.Error)
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation error", domain.ErrMissingQuery, http.StatusBadRequest},
		{"not found error", domain.ErrSessionNotFound, http.StatusNotFound},
		{"index empty", domain.ErrIndexEmpty, http.StatusConflict},
		{"transient service", domain.NewTransientServiceError(errors.New("429")), http.StatusServiceUnavailable},
		{"permanent service", domain.NewPermanentServiceError(errors.New("401")), http.StatusBadGateway},
		{"generation failed", domain.NewGenerationFailed(errors.New("boom")), http.StatusBadGateway},
		{"build incomplete", domain.NewBuildIncomplete([]string{"c1", "c2"}), http.StatusBadGateway},
		{"model mismatch", domain.NewModelMismatch("m1", "m2"), http.StatusInternalServerError},
		{"prompt too large", domain.ErrPromptTooLarge, http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestHandleError_IncludesCode(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.NewTransientServiceError(errors.New("rate limited")))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, domain.ErrCodeTransientService, result.Code)
	assert.Contains(t, result.Error, "rate limited")
}
