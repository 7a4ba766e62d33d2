package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightforge/sitechat/internal/api"
	"github.com/brightforge/sitechat/internal/store"
)

type ViewReader interface {
	ReadView(kind string) (json.RawMessage, error)
}

type ViewsHandler struct {
	views ViewReader
}

func NewViewsHandler(views ViewReader) *ViewsHandler {
	return &ViewsHandler{views: views}
}

func (h *ViewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	switch kind {
	case store.ViewPrices, store.ViewContacts, store.ViewLocations, store.ViewTeams:
	default:
		api.Error(w, http.StatusBadRequest, "unknown view kind")
		return
	}

	doc, err := h.views.ReadView(kind)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, doc)
}
