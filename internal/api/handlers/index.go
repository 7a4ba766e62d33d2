package handlers

import (
	"context"
	"net/http"

	"github.com/brightforge/sitechat/internal/api"
	"github.com/brightforge/sitechat/internal/index"
	"github.com/brightforge/sitechat/internal/service"
)

type IndexService interface {
	Status(ctx context.Context) (*service.IndexStatus, error)
	Rebuild(ctx context.Context) (*index.BuildReport, error)
}

type IndexHandler struct {
	svc IndexService
}

func NewIndexHandler(svc IndexService) *IndexHandler {
	return &IndexHandler{svc: svc}
}

func (h *IndexHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, status)
}

func (h *IndexHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Rebuild(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, report)
}
