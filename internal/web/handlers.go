package web

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/mdsite/internal/apperr"
	"github.com/starford/mdsite/internal/checksum"
	"github.com/starford/mdsite/internal/site"
)

// Handler holds the page route handler.
type Handler struct {
	svc    *site.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *site.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// ServePage handles GET /*: resolves the path and writes the page,
// redirect, or static file.
func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Resolve(r.Context(), r.URL.Path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("resolve failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if page.Location != "" {
		http.Redirect(w, r, page.Location, page.Status)
		return
	}

	// ServeContent answers conditional and range requests from the ETag
	// and, for static files, the modification time.
	w.Header().Set("Content-Type", page.ContentType)
	w.Header().Set("ETag", checksum.ETag(page.Body))
	http.ServeContent(w, r, page.Name, page.ModTime, bytes.NewReader(page.Body))
}
