package crm

import (
	"context"
	"time"
)

// Client is the interface for reading deals from the CRM backend.
type Client interface {
	ListDeals(ctx context.Context, workspaceID string) ([]Deal, error)
}

// Config holds the connection settings for the CRM backend.
type Config struct {
	BaseURL string
	Token   string

	// Performance Settings
	Timeout        time.Duration
	RequestsPerSec int
	MaxRetryTime   time.Duration
}

// NewClient creates a new backend client based on the provided configuration.
func NewClient(cfg Config) Client {
	return NewHTTPClient(cfg)
}
