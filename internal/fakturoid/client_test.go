package fakturoid_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mdolezal/isdocsync/internal/fakturoid"
)

const invoicePage = `[{
	"id": 4242,
	"custom_id": "c-1",
	"number": "2024-0042",
	"token": "tok",
	"document_type": "invoice",
	"status": "paid",
	"open": false,
	"paid": true,
	"issued_on": "2024-03-05",
	"paid_on": "2024-03-08",
	"sent_at": "2024-03-05T10:30:00+01:00",
	"updated_at": "2024-03-08T08:00:00+01:00",
	"due": 14,
	"subtotal": "2000.0",
	"total": "2420.0",
	"remaining_amount": "0.0",
	"currency": "CZK",
	"exchange_rate": "1.0",
	"vat_price_mode": "without_vat",
	"client_name": "Odběratel a.s.",
	"client_vat_no": "CZ87654321",
	"your_name": "Moje firma s.r.o.",
	"your_vat_no": "CZ12345678",
	"variable_symbol": "20240042",
	"bank_account": "123456789/0100",
	"iban": "CZ6501000000000123456789",
	"tags": ["b2b", "q1"],
	"vat_rates_summary": [{"vat_rate": 21, "base": 2000, "vat": 420}],
	"html_url": "https://app.fakturoid.cz/x/invoices/4242",
	"lines": [
		{"name": "Konzultace", "quantity": "2.0", "unit_price": "1000.0", "vat_rate": "21.0", "total_price_with_vat": "2420.0"}
	]
}]`

func TestClient_FetchInvoices(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/accounts/acme/invoices.json", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Empty(t, r.URL.Query().Get("updated_since"))
		assert.Equal(t, "Bearer valid-token", r.Header.Get("Authorization"))
		assert.Equal(t, "isdocsync (test)", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(invoicePage))
	}))
	defer server.Close()

	conn := &fakturoid.Connection{
		ID:                   uuid.New(),
		AccessToken:          "valid-token",
		AccessTokenExpiresAt: time.Now().Add(time.Hour),
		AccountSlug:          "acme",
	}

	repo := fakturoid.NewMockConnectionRepository(ctrl)
	repo.EXPECT().GetByID(gomock.Any(), conn.ID).Return(conn, nil)

	oauth := fakturoid.NewOAuthClient(server.URL, "id", "secret", "http://cb", "isdocsync (test)")
	client := fakturoid.NewClient(oauth, repo, server.URL, "isdocsync (test)")

	records, err := client.FetchInvoices(context.Background(), conn.ID, 1, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, int64(4242), rec.RemoteID)
	assert.Equal(t, conn.ID, rec.ConnectionID)
	assert.Equal(t, "2024-0042", rec.Number)
	assert.Equal(t, "paid", rec.Status)
	assert.True(t, rec.Paid)
	require.NotNil(t, rec.IssuedOn)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *rec.IssuedOn)
	require.NotNil(t, rec.SentAt)
	require.NotNil(t, rec.Due)
	assert.Equal(t, 14, *rec.Due)
	assert.Equal(t, "2420", rec.Total.Decimal.String())
	assert.True(t, rec.ExchangeRate.Valid)
	assert.Equal(t, "Odběratel a.s.", rec.Client.Name)
	assert.Equal(t, "Moje firma s.r.o.", rec.Owner.Name)
	assert.JSONEq(t, `["b2b","q1"]`, string(rec.Tags))
	require.Len(t, rec.Lines, 1)
	assert.Equal(t, "Konzultace", rec.Lines[0].Name)
	assert.Equal(t, 0, rec.Lines[0].LineOrder)
}

func TestClient_FetchInvoices_RefreshBoundary(t *testing.T) {
	type testCase struct {
		name        string
		expiresIn   time.Duration
		wantRefresh bool
	}

	tests := []testCase{
		{name: "ExpiringSoonRefreshes", expiresIn: 4 * time.Minute, wantRefresh: true},
		{name: "FreshTokenSkipsRefresh", expiresIn: 10 * time.Minute, wantRefresh: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			var refreshCalls atomic.Int32

			mux := http.NewServeMux()
			mux.HandleFunc("/api/v3/oauth/token", func(w http.ResponseWriter, r *http.Request) {
				refreshCalls.Add(1)

				require.NoError(t, r.ParseForm())
				assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
				assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

				user, pass, ok := r.BasicAuth()
				require.True(t, ok)
				assert.Equal(t, "id", user)
				assert.Equal(t, "secret", pass)

				json.NewEncoder(w).Encode(map[string]any{
					"access_token":  "new-access",
					"refresh_token": "new-refresh",
					"expires_in":    7200,
				})
			})
			mux.HandleFunc("/api/v3/accounts/acme/invoices.json", func(w http.ResponseWriter, r *http.Request) {
				wantToken := "Bearer old-access"
				if tt.wantRefresh {
					wantToken = "Bearer new-access"
				}
				assert.Equal(t, wantToken, r.Header.Get("Authorization"))

				w.Write([]byte(`[]`))
			})

			server := httptest.NewServer(mux)
			defer server.Close()

			conn := &fakturoid.Connection{
				ID:                   uuid.New(),
				AccessToken:          "old-access",
				RefreshToken:         "old-refresh",
				AccessTokenExpiresAt: time.Now().Add(tt.expiresIn),
				AccountSlug:          "acme",
			}

			repo := fakturoid.NewMockConnectionRepository(ctrl)
			repo.EXPECT().GetByID(gomock.Any(), conn.ID).Return(conn, nil)
			if tt.wantRefresh {
				repo.EXPECT().
					UpdateTokens(gomock.Any(), conn.ID, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ uuid.UUID, pair fakturoid.TokenPair) error {
						assert.Equal(t, "new-access", pair.AccessToken)
						assert.Equal(t, "new-refresh", pair.RefreshToken)
						return nil
					})
			}

			oauth := fakturoid.NewOAuthClient(server.URL, "id", "secret", "http://cb", "isdocsync (test)")
			client := fakturoid.NewClient(oauth, repo, server.URL, "isdocsync (test)")

			_, err := client.FetchInvoices(context.Background(), conn.ID, 1, nil)
			require.NoError(t, err)

			if tt.wantRefresh {
				assert.Equal(t, int32(1), refreshCalls.Load())
			} else {
				assert.Zero(t, refreshCalls.Load())
			}
		})
	}
}

func TestClient_FetchInvoices_UpstreamError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	conn := &fakturoid.Connection{
		ID:                   uuid.New(),
		AccessToken:          "t",
		AccessTokenExpiresAt: time.Now().Add(time.Hour),
		AccountSlug:          "acme",
	}

	repo := fakturoid.NewMockConnectionRepository(ctrl)
	repo.EXPECT().GetByID(gomock.Any(), conn.ID).Return(conn, nil)

	oauth := fakturoid.NewOAuthClient(server.URL, "id", "secret", "http://cb", "ua")
	client := fakturoid.NewClient(oauth, repo, server.URL, "ua")

	_, err := client.FetchInvoices(context.Background(), conn.ID, 1, nil)

	var statusErr *fakturoid.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestOAuthClient_AuthorizationURL(t *testing.T) {
	oauth := fakturoid.NewOAuthClient("https://app.fakturoid.cz", "client-1", "secret", "https://cb.example/oauth", "ua")

	got := oauth.AuthorizationURL("state-xyz")

	assert.Contains(t, got, "https://app.fakturoid.cz/api/v3/oauth?")
	assert.Contains(t, got, "client_id=client-1")
	assert.Contains(t, got, "redirect_uri=https%3A%2F%2Fcb.example%2Foauth")
	assert.Contains(t, got, "response_type=code")
	assert.Contains(t, got, "state=state-xyz")
}

func TestOAuthClient_Exchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "https://cb.example/oauth", r.PostForm.Get("redirect_uri"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"expires_in":    7200,
		})
	}))
	defer server.Close()

	oauth := fakturoid.NewOAuthClient(server.URL, "id", "secret", "https://cb.example/oauth", "ua")

	pair, err := oauth.Exchange(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "at", pair.AccessToken)
	assert.Equal(t, "rt", pair.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), pair.ExpiresAt, time.Minute)
}
