// Package pocket is the Pocket AI recordings gateway. It lists recordings
// newer than a watermark and fetches full recording payloads.
package pocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/powerflow-sync/powerflow/internal/apiclient"
	"github.com/powerflow-sync/powerflow/internal/model"
	"github.com/powerflow-sync/powerflow/internal/sync"
)

// DefaultBaseURL is the public Pocket API.
const DefaultBaseURL = "https://public.heypocketai.com/api/v1"

const (
	defaultPageSize = 100
	maxPages        = 1000
)

// Config holds configuration for the Pocket client.
type Config struct {
	APIKey   string
	BaseURL  string
	PageSize int
	Timeout  time.Duration

	// RequestsPerSecond is the client-side rate limit; zero disables it.
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
		PageSize:          defaultPageSize,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
		BaseDelay:         time.Second,
		Logger:            log.New(os.Stderr, "[pocket] ", log.LstdFlags),
	}
}

// Client talks to the Pocket API. It implements sync.Source.
type Client struct {
	api      *apiclient.Client
	pageSize int
	logger   *log.Logger
}

var _ sync.Source = (*Client)(nil)

// New creates a Client.
func New(config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("pocket API key cannot be empty")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.PageSize <= 0 {
		config.PageSize = defaultPageSize
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard, "", 0)
	}

	apiConfig := apiclient.DefaultConfig()
	apiConfig.BaseURL = config.BaseURL
	apiConfig.Headers = map[string]string{"Authorization": "Bearer " + config.APIKey}
	apiConfig.RequestsPerSecond = config.RequestsPerSecond
	apiConfig.MaxDelay = 30 * time.Second
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
	return &Client{api: api, pageSize: config.PageSize, logger: config.Logger}, nil
}

type listItem struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	CreatedAt      string `json:"createdAt"`
	CreatedAtSnake string `json:"created_at"`
}

type listResponse struct {
	Data       []listItem `json:"data"`
	Pagination *struct {
		HasMore bool `json:"has_more"`
	} `json:"pagination"`
}

type detailResponse struct {
	Data *model.RawRecording `json:"data"`
}

// ListSince lists recordings created strictly after since (all when since
// is nil), following pages until the API reports no more. Entries without
// an id are dropped; entries with an unreadable timestamp are kept so the
// detail fetch can report them.
func (c *Client) ListSince(ctx context.Context, since *time.Time) ([]sync.RecordingRef, error) {
	var out []sync.RecordingRef
	seen := make(map[string]bool)
	skipped := 0

	for page := 1; page <= maxPages; page++ {
		query := url.Values{
			"limit": {strconv.Itoa(c.pageSize)},
			"page":  {strconv.Itoa(page)},
		}
		var resp listResponse
		if err := c.api.Get(ctx, "/public/recordings", query, &resp); err != nil {
			return nil, fmt.Errorf("failed to list recordings: %w", err)
		}

		fresh := 0
		for _, item := range resp.Data {
			if item.ID == "" || seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			fresh++

			ref := sync.RecordingRef{ID: item.ID, Title: item.Title}
			stamp := item.CreatedAt
			if stamp == "" {
				stamp = item.CreatedAtSnake
			}
			if created, err := model.ParseTimestamp(stamp); err == nil {
				ref.CreatedAt = created
				if since != nil && !created.After(*since) {
					skipped++
					continue
				}
			}
			out = append(out, ref)
		}

		// Stop on the last page, or when the API ignores paging and
		// serves the same page again.
		if fresh == 0 || len(resp.Data) < c.pageSize {
			break
		}
		if resp.Pagination != nil && !resp.Pagination.HasMore {
			break
		}
	}

	c.logger.Printf("Listed %d recordings (%d at or before watermark)", len(out), skipped)
	return out, nil
}

// FetchDetail fetches the full payload of one recording.
func (c *Client) FetchDetail(ctx context.Context, id string) (*model.RawRecording, error) {
	var resp detailResponse
	if err := c.api.Get(ctx, "/public/recordings/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch recording %s: %w", id, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("failed to fetch recording %s: %w", id, apiclient.ErrNotFound)
	}
	return resp.Data, nil
}

// Tags returns the tags defined in the account.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := c.api.Get(ctx, "/public/tags", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	raw := model.RawRecording{Tags: resp.Data}
	return raw.TagNames(), nil
}

// Ping checks that the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{"limit": {"1"}}
	if err := c.api.Get(ctx, "/public/recordings", query, &listResponse{}); err != nil {
		return fmt.Errorf("pocket connection check failed: %w", err)
	}
	return nil
}
