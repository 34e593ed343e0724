// Package notion is the Notion gateway: batched page existence checks,
// page creation with large bodies, and database schema discovery.
package notion

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/powerflow-sync/powerflow/internal/apiclient"
	"github.com/powerflow-sync/powerflow/internal/sync"
)

// DefaultBaseURL is the public Notion API.
const DefaultBaseURL = "https://api.notion.com/v1"

// APIVersion is the Notion-Version header sent with every request.
const APIVersion = "2022-06-28"

// MaxFilterConditions is the most OR conditions Notion accepts per query.
const MaxFilterConditions = 100

// Config holds configuration for the Notion client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// RequestsPerSecond is the client-side rate limit; zero disables it.
	// Notion allows an average of three requests per second.
	RequestsPerSecond float64

	BaseDelay  time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// DefaultConfig returns sensible defaults for apiKey.
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:            apiKey,
		BaseURL:           DefaultBaseURL,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 3,
		BaseDelay:         time.Second,
		Logger:            log.New(os.Stderr, "[notion] ", log.LstdFlags),
	}
}

// Client talks to the Notion API. It implements sync.Destination.
type Client struct {
	api    *apiclient.Client
	logger *log.Logger
}

var _ sync.Destination = (*Client)(nil)

// New creates a Client.
func New(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("notion API key cannot be empty")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard, "", 0)
	}

	apiConfig := apiclient.DefaultConfig()
	apiConfig.BaseURL = config.BaseURL
	apiConfig.Headers = map[string]string{
		"Authorization":  "Bearer " + config.APIKey,
		"Notion-Version": APIVersion,
	}
	apiConfig.RequestsPerSecond = config.RequestsPerSecond
	apiConfig.MaxDelay = 60 * time.Second
	apiConfig.HTTPClient = config.HTTPClient
	apiConfig.Logger = config.Logger
	if config.Timeout > 0 {
		apiConfig.Timeout = config.Timeout
	}
	if config.BaseDelay > 0 {
		apiConfig.BaseDelay = config.BaseDelay
	}

	api, err := apiclient.New(apiConfig)
	if err != nil {
		return nil, err
	}
	return &Client{api: api, logger: config.Logger}, nil
}
