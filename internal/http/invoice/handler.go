package invoice

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mdolezal/isdocsync/internal/http/auth"
	"github.com/mdolezal/isdocsync/internal/importer"
	"github.com/mdolezal/isdocsync/internal/invoice"
	"github.com/mdolezal/isdocsync/internal/staging/mirror"
	"github.com/mdolezal/isdocsync/internal/staging/parsed"
)

type Handler struct {
	svc      *invoice.Service
	importer *importer.Service
}

func NewHandler(svc *invoice.Service, imp *importer.Service) *Handler {
	return &Handler{svc: svc, importer: imp}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/resync", h.resync)
	r.Post("/import/mirror/{recordID}", h.importFromMirror)
	r.Post("/import/mirror", h.importMirrorBatch)
	r.Post("/import/upload/{recordID}", h.importFromParsed)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv := req.toInvoice()
	inv.ID = uuid.New()
	inv.UserID = userID

	created, err := h.svc.Create(r.Context(), inv)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(created)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	filter := invoice.ListFilter{UserID: userID}

	if s := r.URL.Query().Get("direction"); s != "" {
		d := invoice.Direction(s)
		filter.Direction = &d
	}

	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.PageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))

	invoices, err := h.svc.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(invoices)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// update edits header and party fields. Lifecycle state is owned by resync
// and line items by the import, neither is editable here.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	req.apply(inv)

	if err := h.svc.Update(r.Context(), inv); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
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
		if errors.Is(err, invoice.ErrNotFound) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) importFromMirror(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	recordID, err := uuid.Parse(chi.URLParam(r, "recordID"))
	if err != nil {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return
	}

	inv, err := h.importer.ImportFromMirror(r.Context(), userID, recordID)
	if err != nil {
		writeImportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type importBatchRequest struct {
	RecordIDs []uuid.UUID `json:"record_ids"`
}

// importMirrorBatch imports sequentially and stops at the first failure.
// Invoices committed before the failure are reported alongside the error.
func (h *Handler) importMirrorBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req importBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(req.RecordIDs) == 0 {
		http.Error(w, "record_ids must not be empty", http.StatusBadRequest)
		return
	}

	invoices, err := h.importer.ImportMirrorBatch(r.Context(), userID, req.RecordIDs)

	resp := struct {
		Imported []invoiceResponse `json:"imported"`
		Error    string            `json:"error,omitempty"`
	}{
		Imported: toResponseList(invoices),
	}

	status := http.StatusCreated
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusMultiStatus
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) importFromParsed(w http.ResponseWriter, r *http.Request) {
	recordID, err := uuid.Parse(chi.URLParam(r, "recordID"))
	if err != nil {
		http.Error(w, "invalid record id", http.StatusBadRequest)
		return
	}

	inv, err := h.importer.ImportFromParsed(r.Context(), recordID)
	if err != nil {
		writeImportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) resync(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	inv, err := h.importer.Resync(r.Context(), id)
	if err != nil {
		writeImportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeImportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invoice.ErrNotFound),
		errors.Is(err, mirror.ErrNotFound),
		errors.Is(err, parsed.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, importer.ErrAlreadyImported),
		errors.Is(err, importer.ErrNotReady),
		errors.Is(err, importer.ErrSourceMismatch):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, importer.ErrInvalid):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
