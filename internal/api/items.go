package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gsetrade/gsebook/internal/inventory"
	"github.com/gsetrade/gsebook/internal/model"
	"github.com/gsetrade/gsebook/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB        *sql.DB
	Inventory *inventory.Service
}

// List handles GET /api/items. ?sold=true or ?sold=false filters by state.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	if v := r.URL.Query().Get("sold"); v != "" {
		sold, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "sold must be true or false")
			return
		}
		filtered := items[:0]
		for _, item := range items {
			if item.Sold() == sold {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}. Stored files are removed best-effort.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if _, err := h.Inventory.Delete(r.Context(), id); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "item not found")
			return
		}
		slog.Error("failed to delete item", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	slog.Info("item deleted", "user", GetClaims(r.Context()).Username, "item", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Summary handles GET /api/summary.
func (h *ItemsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := store.ItemSummary(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to summarize items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to summarize items")
		return
	}
	jsonResponse(w, http.StatusOK, summary)
}
