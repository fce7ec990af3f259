package web

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/gsetrade/gsebook/internal/model"
	"github.com/gsetrade/gsebook/internal/report"
	"github.com/gsetrade/gsebook/internal/store"
)

// Index handles GET /.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	data := s.page(w, r, "Inventory")

	items, err := store.ListItems(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		data.Flashes = append(data.Flashes, Flash{Kind: FlashError, Message: "Error loading items. Please try again."})
	}
	if items == nil {
		items = []model.Item{}
	}

	s.Templates.Render(w, http.StatusOK, "index.html", &struct {
		PageData
		Items   []model.Item
		Summary model.Summary
	}{
		PageData: data,
		Items:    items,
		Summary:  model.Summarize(items),
	})
}

// ExportItems handles GET /export.xlsx.
func (s *Server) ExportItems(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list items for export", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteItems(&buf, items); err != nil {
		slog.Error("failed to build export", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	name := "inventory_" + time.Now().Format(model.DateLayout) + ".xlsx"
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.DB.PingContext(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("database unavailable\n"))
		return
	}
	w.Write([]byte("ok\n"))
}

// Upload handles GET /uploads/{path...} for the local file store.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	name := path.Clean(r.PathValue("path"))
	if !fs.ValidPath(name) || name == "." {
		http.NotFound(w, r)
		return
	}

	info, err := fs.Stat(s.Uploads, name)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("failed to stat upload", "path", name, "error", err)
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFileFS(w, r, s.Uploads, name)
}
