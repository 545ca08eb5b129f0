package upload

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mdolezal/isdocsync/internal/http/auth"
	"github.com/mdolezal/isdocsync/internal/staging/parsed"
)

// maxUploadSize caps the multipart body. ISDOC documents are small, a few
// hundred kilobytes at most.
const maxUploadSize = 10 << 20

const downloadURLExpiry = time.Hour

type Handler struct {
	svc *parsed.Service
}

func NewHandler(svc *parsed.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.upload)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/parse", h.parse)
	r.Put("/{id}", h.updateReview)
	r.Post("/{id}/ready", h.markReady)
	r.Get("/{id}/download", h.downloadURL)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/xml"
	}

	rec, err := h.svc.Upload(r.Context(), userID, header.Filename, header.Size, contentType, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(rec)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var status *parsed.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := parsed.Status(s)
		status = &st
	}

	records, err := h.svc.List(r.Context(), userID, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(records)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, parsed.ErrNotFound) {
			http.Error(w, "upload not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(rec)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// parse runs extraction on the uploaded document. A parse that fails
// validation is still a 200: the outcome lives on the record.
func (h *Handler) parse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rec, err := h.svc.Parse(r.Context(), id)
	if err != nil {
		if errors.Is(err, parsed.ErrNotFound) {
			http.Error(w, "upload not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(rec)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) updateReview(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.svc.UpdateReview(r.Context(), id, req.toRecord())
	if err != nil {
		switch {
		case errors.Is(err, parsed.ErrNotFound):
			http.Error(w, "upload not found", http.StatusNotFound)
		case errors.Is(err, parsed.ErrNotParsed):
			http.Error(w, "upload has not been parsed", http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(rec)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) markReady(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.MarkReady(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, parsed.ErrNotFound):
			http.Error(w, "upload not found", http.StatusNotFound)
		case errors.Is(err, parsed.ErrNotParsed):
			http.Error(w, "upload has not been parsed", http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) downloadURL(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	url, err := h.svc.DownloadURL(r.Context(), id, downloadURLExpiry)
	if err != nil {
		if errors.Is(err, parsed.ErrNotFound) {
			http.Error(w, "upload not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(map[string]string{"url": url}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, parsed.ErrNotFound) {
			http.Error(w, "upload not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
