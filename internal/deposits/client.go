package deposits

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"winery-tank-backend/config"
	"winery-tank-backend/internal/log"
	"winery-tank-backend/internal/tank"
)

// ErrUnauthorized is returned when the winery backend rejects the token.
var ErrUnauthorized = errors.New("upstream rejected credentials")

// Fetcher retrieves the raw deposit list. token is the bearer token to
// present; an empty token means the service's own.
type Fetcher interface {
	FetchDeposits(ctx context.Context, token string) ([]tank.RawDeposit, error)
}

// Client fetches deposits from the winery backend over HTTP.
type Client struct {
	url    string
	token  string
	client *http.Client
}

// NewClient creates a Client from the upstream configuration.
func NewClient(cfg *config.UpstreamConfig) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn(context.Background(), "invalid upstream proxy URL, not using a proxy",
				slog.String("proxy", cfg.HTTPProxy), log.Err(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Client{
		url:   strings.TrimRight(cfg.BaseURL, "/") + cfg.DepositsPath,
		token: cfg.Token,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// FetchDeposits performs GET on the deposits endpoint and decodes the list.
func (c *Client) FetchDeposits(ctx context.Context, token string) ([]tank.RawDeposit, error) {
	if token == "" {
		token = c.token
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return tank.DecodeDeposits(body)
}
