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
)

// OAuthClient drives the authorization-code and refresh-token grants.
// Token endpoints authenticate with client credentials via Basic auth.
type OAuthClient struct {
	httpClient *http.Client

	baseURL      string
	clientID     string
	clientSecret string
	redirectURI  string
	userAgent    string
}

func NewOAuthClient(baseURL, clientID, clientSecret, redirectURI, userAgent string) *OAuthClient {
	return &OAuthClient{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		userAgent:    userAgent,
	}
}

// AuthorizationURL is where the user is sent to approve the connection.
func (c *OAuthClient) AuthorizationURL(state string) string {
	params := url.Values{
		"client_id":     {c.clientID},
		"redirect_uri":  {c.redirectURI},
		"response_type": {"code"},
		"state":         {state},
	}

	return c.baseURL + "/api/v3/oauth?" + params.Encode()
}

// Exchange trades the authorization code from the callback for tokens.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (*TokenPair, error) {
	return c.tokenRequest(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {c.redirectURI},
	})
}

// Refresh trades a refresh token for a fresh token pair.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return c.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// Revoke invalidates the connection's tokens at the provider. Best effort:
// a failed revoke does not block disconnecting locally.
func (c *OAuthClient) Revoke(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v3/oauth/revoke", nil)
	if err != nil {
		return fmt.Errorf("building revoke request: %w", err)
	}

	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	defer resp.Body.Close()

	return nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

func (c *OAuthClient) tokenRequest(ctx context.Context, form url.Values) (*TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v3/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}

	c.decorate(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}

	return &TokenPair{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

func (c *OAuthClient) decorate(req *http.Request) {
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}
