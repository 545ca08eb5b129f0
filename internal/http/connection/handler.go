// Package connection exposes the Fakturoid OAuth flow, invoice sync and
// mirror browsing endpoints.
package connection

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mdolezal/isdocsync/internal/fakturoid"
	fsync "github.com/mdolezal/isdocsync/internal/fakturoid/sync"
	"github.com/mdolezal/isdocsync/internal/http/auth"
	"github.com/mdolezal/isdocsync/internal/staging/mirror"
)

// stateTTL bounds how long an OAuth redirect may take before the callback
// is rejected.
const stateTTL = 10 * time.Minute

type Handler struct {
	oauth       *fakturoid.OAuthClient
	client      *fakturoid.Client
	connections fakturoid.ConnectionRepository
	sync        *fsync.Service

	stateSecret string
}

func NewHandler(
	oauth *fakturoid.OAuthClient,
	client *fakturoid.Client,
	connections fakturoid.ConnectionRepository,
	sync *fsync.Service,
	stateSecret string,
) *Handler {
	return &Handler{
		oauth:       oauth,
		client:      client,
		connections: connections,
		sync:        sync,
		stateSecret: stateSecret,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/connect", h.connect)
	r.Post("/sync", h.syncInvoices)
	r.Get("/status", h.status)
	r.Delete("/", h.disconnect)
	r.Get("/invoices", h.listMirror)
	r.Get("/invoices/{id}", h.getMirror)
}

// Callback is mounted outside the authenticated tree: the browser arrives
// from the provider carrying only code and state.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r)
}

// connect hands the client the provider URL to redirect the user to. The
// state token ties the eventual callback back to this user.
func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	state, err := auth.SignState(h.stateSecret, userID, stateTTL)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	resp := map[string]string{"authorization_url": h.oauth.AuthorizationURL(state)}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" || state == "" {
		http.Error(w, "missing code or state", http.StatusBadRequest)
		return
	}

	userID, err := auth.VerifyState(h.stateSecret, state)
	if err != nil {
		http.Error(w, "invalid state", http.StatusUnauthorized)
		return
	}

	pair, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("oauth exchange failed", "error", err)
		http.Error(w, "token exchange failed", http.StatusBadGateway)

		return
	}

	slug, err := h.client.AccountSlug(r.Context(), pair.AccessToken)
	if err != nil {
		slog.Error("account lookup failed", "error", err)
		http.Error(w, "account lookup failed", http.StatusBadGateway)

		return
	}

	conn := &fakturoid.Connection{
		UserID:               userID,
		AccessToken:          pair.AccessToken,
		RefreshToken:         pair.RefreshToken,
		AccessTokenExpiresAt: pair.ExpiresAt,
		AccountSlug:          slug,
	}

	if err := h.connections.Create(r.Context(), conn); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toConnectionResponse(conn)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) syncInvoices(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	fullSync, _ := strconv.ParseBool(r.URL.Query().Get("full"))

	synced, err := h.sync.SyncInvoices(r.Context(), userID, fullSync)
	if err != nil {
		if errors.Is(err, fakturoid.ErrNoConnection) {
			http.Error(w, "no active connection", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(map[string]int{"synced": synced}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	result, err := h.sync.Status(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// disconnect revokes the tokens remotely and deactivates the connection.
// Mirrored rows and imported invoices stay.
func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := h.connections.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, fakturoid.ErrNoConnection) {
			http.Error(w, "no active connection", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	if err := h.oauth.Revoke(r.Context()); err != nil {
		slog.Warn("token revoke failed, disconnecting anyway", "error", err)
	}

	if err := h.connections.Disconnect(r.Context(), conn.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listMirror(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	records, err := h.sync.ListMirror(r.Context(), userID, page, pageSize)
	if err != nil {
		if errors.Is(err, fakturoid.ErrNoConnection) {
			http.Error(w, "no active connection", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toMirrorResponseList(records)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) getMirror(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rec, err := h.sync.GetMirror(r.Context(), id)
	if err != nil {
		if errors.Is(err, mirror.ErrNotFound) {
			http.Error(w, "mirrored invoice not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toMirrorResponse(rec)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
