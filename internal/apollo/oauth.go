package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

var ErrOAuthNotConfigured = errors.New("Apollo OAuth is not configured")

// ExchangeCode trades an OAuth authorization code for an access token. It talks
// to the provider directly, not through the proxy.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	if c.opts.ClientID == "" || c.opts.ClientSecret == "" {
		return "", ErrOAuthNotConfigured
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     c.opts.ClientID,
		"client_secret": c.opts.ClientSecret,
		"code":          code,
		"redirect_uri":  c.opts.RedirectURI,
		"grant_type":    "authorization_code",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/v1/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.transportError("/v1/oauth/token", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var payload struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.log.Error("oauth token response is not json", zap.Int("status", resp.StatusCode), zap.Error(err))
		return "", &APIError{Status: resp.StatusCode, Message: "Failed to fetch access token"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := payload.Error
		if msg == "" {
			msg = "Failed to fetch access token"
		}
		return "", &APIError{Status: resp.StatusCode, Message: msg}
	}
	if payload.AccessToken == "" {
		return "", &APIError{Status: resp.StatusCode, Message: "No access token received"}
	}
	return payload.AccessToken, nil
}
