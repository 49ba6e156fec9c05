package crm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// StatusError is returned when the backend answers with a non-200 status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d %s for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Temporary reports whether the request is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// HTTPClient talks to the CRM backend REST API.
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewHTTPClient creates a rate-limited, retrying client for the backend REST API.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSec == 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.MaxRetryTime == 0 {
		cfg.MaxRetryTime = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &HTTPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RequestsPerSec),
		logger:  log.With().Str("component", "crm_client").Logger(),
	}
}

// ListDeals fetches every deal of a workspace. Closed deals are returned too;
// OpenPipeline does the filtering.
func (c *HTTPClient) ListDeals(ctx context.Context, workspaceID string) ([]Deal, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace id is required")
	}
	endpoint := fmt.Sprintf("%s/api/v1/workspaces/%s/deals", c.cfg.BaseURL, url.PathEscape(workspaceID))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	dtos, err := decodeDeals(body)
	if err != nil {
		return nil, err
	}

	deals := mapDeals(dtos)
	c.logger.Debug().Str("workspace", workspaceID).Int("count", len(deals)).Msg("Fetched deals")
	return deals, nil
}

func (c *HTTPClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	var body []byte
	attempt := 0

	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if c.cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("Backend request failed")
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
			if statusErr.Temporary() {
				c.logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("Backend busy, retrying")
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.cfg.MaxRetryTime

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	return body, nil
}
