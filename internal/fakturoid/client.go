package fakturoid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mdolezal/isdocsync/internal/invoice"
	"github.com/mdolezal/isdocsync/internal/staging/mirror"
)

//go:generate mockgen -source=client.go -destination=client_mock.go -package=fakturoid
type ConnectionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Connection, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Connection, error)
	Create(ctx context.Context, conn *Connection) error
	UpdateTokens(ctx context.Context, id uuid.UUID, pair TokenPair) error
	UpdateLastSynced(ctx context.Context, id uuid.UUID) error
	Disconnect(ctx context.Context, id uuid.UUID) error
}

// Client fetches invoices for a connection, refreshing the access token
// transparently when it is close to expiry.
type Client struct {
	httpClient  *http.Client
	oauth       *OAuthClient
	connections ConnectionRepository

	baseURL   string
	userAgent string
}

func NewClient(oauth *OAuthClient, connections ConnectionRepository, baseURL, userAgent string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		oauth:       oauth,
		connections: connections,
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   userAgent,
	}
}

// AccountSlug resolves the account behind an access token. Used once
// during the connect flow; the slug is stored on the connection.
func (c *Client) AccountSlug(ctx context.Context, accessToken string) (string, error) {
	var accounts []struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
	}

	if err := c.getJSON(ctx, accessToken, c.baseURL+"/api/v3/accounts.json", &accounts); err != nil {
		return "", err
	}

	if len(accounts) == 0 {
		return "", fmt.Errorf("token resolves to no fakturoid account")
	}

	return accounts[0].Slug, nil
}

// FetchInvoices returns one page of the connection's invoices, newest
// first. updatedSince, when set, is passed through as a server-side filter.
func (c *Client) FetchInvoices(ctx context.Context, connectionID uuid.UUID, page int, updatedSince *time.Time) ([]*mirror.Record, error) {
	conn, err := c.freshConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/v3/accounts/%s/invoices.json?page=%d", c.baseURL, conn.AccountSlug, page)
	if updatedSince != nil {
		endpoint += "&updated_since=" + url.QueryEscape(updatedSince.UTC().Format(time.RFC3339))
	}

	var apiInvoices []apiInvoice
	if err := c.getJSON(ctx, conn.AccessToken, endpoint, &apiInvoices); err != nil {
		return nil, err
	}

	records := make([]*mirror.Record, 0, len(apiInvoices))
	for i := range apiInvoices {
		records = append(records, apiInvoices[i].toRecord(conn.ID))
	}

	return records, nil
}

// FetchInvoice returns a single invoice by its remote id.
func (c *Client) FetchInvoice(ctx context.Context, connectionID uuid.UUID, remoteID int64) (*mirror.Record, error) {
	conn, err := c.freshConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/v3/accounts/%s/invoices/%d.json", c.baseURL, conn.AccountSlug, remoteID)

	var api apiInvoice
	if err := c.getJSON(ctx, conn.AccessToken, endpoint, &api); err != nil {
		return nil, err
	}

	return api.toRecord(conn.ID), nil
}

// freshConnection loads the connection and refreshes its access token when
// expiry is within the safety margin, persisting the new pair first.
func (c *Client) freshConnection(ctx context.Context, connectionID uuid.UUID) (*Connection, error) {
	conn, err := c.connections.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if time.Until(conn.AccessTokenExpiresAt) > refreshMargin {
		return conn, nil
	}

	pair, err := c.oauth.Refresh(ctx, conn.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refreshing access token: %w", err)
	}

	if err := c.connections.UpdateTokens(ctx, conn.ID, *pair); err != nil {
		return nil, fmt.Errorf("persisting refreshed tokens: %w", err)
	}

	conn.AccessToken = pair.AccessToken
	conn.RefreshToken = pair.RefreshToken
	conn.AccessTokenExpiresAt = pair.ExpiresAt

	return conn, nil
}

func (c *Client) getJSON(ctx context.Context, accessToken, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling fakturoid: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// apiTime accepts both RFC3339 timestamps and bare dates; the API mixes
// the two across fields.
type apiTime struct {
	t *time.Time
}

func (a *apiTime) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	if s == nil || *s == "" {
		a.t = nil
		return nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			a.t = &t
			return nil
		}
	}

	return fmt.Errorf("unrecognized time %q", *s)
}

type apiInvoice struct {
	ID           int64   `json:"id"`
	CustomID     string  `json:"custom_id"`
	Number       string  `json:"number"`
	Token        string  `json:"token"`
	DocumentType string  `json:"document_type"`
	Status       string  `json:"status"`
	Open         bool    `json:"open"`
	Sent         bool    `json:"sent"`
	Overdue      bool    `json:"overdue"`
	Paid         bool    `json:"paid"`
	Cancelled    bool    `json:"cancelled"`
	IssuedOn     apiTime `json:"issued_on"`
	SentAt       apiTime `json:"sent_at"`
	PaidOn       apiTime `json:"paid_on"`
	DueOn        apiTime `json:"due_on"`
	CancelledAt  apiTime `json:"cancelled_at"`
	UpdatedAt    apiTime `json:"updated_at"`
	Due          *int    `json:"due"`

	Subtotal        decimal.Decimal  `json:"subtotal"`
	Total           decimal.Decimal  `json:"total"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	Currency        string           `json:"currency"`
	ExchangeRate    *decimal.Decimal `json:"exchange_rate"`
	VatPriceMode    string           `json:"vat_price_mode"`

	ClientName           string `json:"client_name"`
	ClientStreet         string `json:"client_street"`
	ClientCity           string `json:"client_city"`
	ClientZip            string `json:"client_zip"`
	ClientCountry        string `json:"client_country"`
	ClientRegistrationNo string `json:"client_registration_no"`
	ClientVatNo          string `json:"client_vat_no"`

	ClientHasDeliveryAddress bool   `json:"client_has_delivery_address"`
	ClientDeliveryName       string `json:"client_delivery_name"`
	ClientDeliveryStreet     string `json:"client_delivery_street"`
	ClientDeliveryCity       string `json:"client_delivery_city"`
	ClientDeliveryZip        string `json:"client_delivery_zip"`
	ClientDeliveryCountry    string `json:"client_delivery_country"`

	YourName           string `json:"your_name"`
	YourStreet         string `json:"your_street"`
	YourCity           string `json:"your_city"`
	YourZip            string `json:"your_zip"`
	YourCountry        string `json:"your_country"`
	YourRegistrationNo string `json:"your_registration_no"`
	YourVatNo          string `json:"your_vat_no"`

	VariableSymbol string `json:"variable_symbol"`
	ConstantSymbol string `json:"constant_symbol"`
	SpecificSymbol string `json:"specific_symbol"`
	BankAccount    string `json:"bank_account"`
	IBAN           string `json:"iban"`
	SwiftBIC       string `json:"swift_bic"`

	Note        string `json:"note"`
	FooterNote  string `json:"footer_note"`
	PrivateNote string `json:"private_note"`

	// Variable remote shapes stay opaque.
	Tags            json.RawMessage `json:"tags"`
	VatRatesSummary json.RawMessage `json:"vat_rates_summary"`
	PaidAdvances    json.RawMessage `json:"paid_advances"`

	HTMLURL       string `json:"html_url"`
	PublicHTMLURL string `json:"public_html_url"`

	Lines []apiLine `json:"lines"`
}

type apiLine struct {
	Name                 string          `json:"name"`
	Quantity             decimal.Decimal `json:"quantity"`
	UnitName             string          `json:"unit_name"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	VatRate              decimal.Decimal `json:"vat_rate"`
	UnitPriceWithoutVat  decimal.Decimal `json:"unit_price_without_vat"`
	UnitPriceWithVat     decimal.Decimal `json:"unit_price_with_vat"`
	TotalPriceWithoutVat decimal.Decimal `json:"total_price_without_vat"`
	TotalVat             decimal.Decimal `json:"total_vat"`
	TotalPriceWithVat    decimal.Decimal `json:"total_price_with_vat"`
	SKU                  string          `json:"sku"`
}

func (api *apiInvoice) toRecord(connectionID uuid.UUID) *mirror.Record {
	rec := &mirror.Record{
		ConnectionID: connectionID,
		RemoteID:     api.ID,
		Token:        api.Token,

		Status:    api.Status,
		Open:      api.Open,
		Sent:      api.Sent,
		Overdue:   api.Overdue,
		Paid:      api.Paid,
		Cancelled: api.Cancelled,

		SentAt:      api.SentAt.t,
		PaidOn:      api.PaidOn.t,
		CancelledAt: api.CancelledAt.t,
		Due:         api.Due,

		RemainingAmount: api.RemainingAmount,

		Client: invoice.Party{
			Name:           api.ClientName,
			Street:         api.ClientStreet,
			City:           api.ClientCity,
			Zip:            api.ClientZip,
			Country:        api.ClientCountry,
			RegistrationNo: api.ClientRegistrationNo,
			VatNo:          api.ClientVatNo,
		},
		ClientHasDeliveryAddress: api.ClientHasDeliveryAddress,
		ClientDelivery: invoice.Party{
			Name:    api.ClientDeliveryName,
			Street:  api.ClientDeliveryStreet,
			City:    api.ClientDeliveryCity,
			Zip:     api.ClientDeliveryZip,
			Country: api.ClientDeliveryCountry,
		},
		Owner: invoice.Party{
			Name:           api.YourName,
			Street:         api.YourStreet,
			City:           api.YourCity,
			Zip:            api.YourZip,
			Country:        api.YourCountry,
			RegistrationNo: api.YourRegistrationNo,
			VatNo:          api.YourVatNo,
		},

		FooterNote:  api.FooterNote,
		PrivateNote: api.PrivateNote,

		Tags:         api.Tags,
		PaidAdvances: api.PaidAdvances,

		HTMLURL:       api.HTMLURL,
		PublicHTMLURL: api.PublicHTMLURL,

		RemoteUpdatedAt: api.UpdatedAt.t,
	}

	rec.Number = api.Number
	rec.CustomID = api.CustomID
	rec.DocumentType = api.DocumentType
	rec.IssuedOn = api.IssuedOn.t
	rec.DueOn = api.DueOn.t
	rec.Subtotal = decimal.NullDecimal{Decimal: api.Subtotal, Valid: true}
	rec.Total = decimal.NullDecimal{Decimal: api.Total, Valid: true}
	rec.Currency = api.Currency
	rec.VatPriceMode = api.VatPriceMode
	rec.VariableSymbol = api.VariableSymbol
	rec.ConstantSymbol = api.ConstantSymbol
	rec.SpecificSymbol = api.SpecificSymbol
	rec.BankAccount = api.BankAccount
	rec.IBAN = api.IBAN
	rec.SwiftBIC = api.SwiftBIC
	rec.Note = api.Note
	rec.VatRatesSummary = api.VatRatesSummary

	if api.ExchangeRate != nil {
		rec.ExchangeRate = decimal.NullDecimal{Decimal: *api.ExchangeRate, Valid: true}
	}

	for i, line := range api.Lines {
		rec.Lines = append(rec.Lines, mirror.Line{
			LineOrder:            i,
			Name:                 line.Name,
			Quantity:             line.Quantity,
			UnitName:             line.UnitName,
			UnitPrice:            line.UnitPrice,
			VatRate:              line.VatRate,
			UnitPriceWithoutVat:  line.UnitPriceWithoutVat,
			UnitPriceWithVat:     line.UnitPriceWithVat,
			TotalPriceWithoutVat: line.TotalPriceWithoutVat,
			TotalVat:             line.TotalVat,
			TotalPriceWithVat:    line.TotalPriceWithVat,
			SKU:                  line.SKU,
		})
	}

	return rec
}
