package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightforge/sitechat/internal/api"
	"github.com/brightforge/sitechat/internal/domain"
	"github.com/brightforge/sitechat/internal/service"
)

type ChatService interface {
	Ask(ctx context.Context, sessionID, question string) (*service.Answer, error)
	History(sessionID string) ([]domain.Turn, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	answer, err := h.svc.Ask(r.Context(), req.SessionID, req.Query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answer)
}

type HistoryResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []domain.Turn `json:"turns"`
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	turns, err := h.svc.History(id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if turns == nil {
		turns = []domain.Turn{}
	}

	api.Success(w, http.StatusOK, HistoryResponse{SessionID: id, Turns: turns})
}
