package notion

import (
	"context"
	"fmt"
	"strings"
)

type textFilter struct {
	Equals string `json:"equals"`
}

type condition struct {
	Property string     `json:"property"`
	RichText textFilter `json:"rich_text"`
}

type orFilter struct {
	Or []condition `json:"or"`
}

type queryRequest struct {
	Filter      any    `json:"filter,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
}

type richTextValue struct {
	PlainText string `json:"plain_text"`
}

type pageProperty struct {
	Type     string          `json:"type"`
	RichText []richTextValue `json:"rich_text"`
	Title    []richTextValue `json:"title"`
}

type pageResult struct {
	ID         string                  `json:"id"`
	Properties map[string]pageProperty `json:"properties"`
}

type queryResponse struct {
	Results    []pageResult `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor *string      `json:"next_cursor"`
}

func (p pageProperty) plainText() string {
	parts := p.RichText
	if p.Type == "title" || len(parts) == 0 {
		parts = append(parts, p.Title...)
	}
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}

// BatchExists returns which of stableIDs already appear in property of
// the database. The ids are checked with OR filters of at most
// MaxFilterConditions conditions per query, following result pages.
func (c *Client) BatchExists(ctx context.Context, stableIDs []string, databaseID, property string) (map[string]bool, error) {
	wanted := make(map[string]bool, len(stableIDs))
	var unique []string
	for _, id := range stableIDs {
		if id == "" || wanted[id] {
			continue
		}
		wanted[id] = true
		unique = append(unique, id)
	}

	existing := make(map[string]bool)
	for start := 0; start < len(unique); start += MaxFilterConditions {
		end := start + MaxFilterConditions
		if end > len(unique) {
			end = len(unique)
		}

		filter := orFilter{Or: make([]condition, 0, end-start)}
		for _, id := range unique[start:end] {
			filter.Or = append(filter.Or, condition{Property: property, RichText: textFilter{Equals: id}})
		}

		if err := c.queryAll(ctx, databaseID, filter, func(page pageResult) {
			if value := page.Properties[property].plainText(); wanted[value] {
				existing[value] = true
			}
		}); err != nil {
			return nil, fmt.Errorf("failed to check existing pages: %w", err)
		}
	}

	c.logger.Printf("Checked %d ids, %d already synced", len(unique), len(existing))
	return existing, nil
}

// queryAll runs a database query and calls fn for every result page.
func (c *Client) queryAll(ctx context.Context, databaseID string, filter any, fn func(pageResult)) error {
	req := queryRequest{Filter: filter, PageSize: 100}
	for {
		var resp queryResponse
		if err := c.api.Post(ctx, "/databases/"+databaseID+"/query", req, &resp); err != nil {
			return err
		}
		for _, page := range resp.Results {
			fn(page)
		}
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			return nil
		}
		req.StartCursor = *resp.NextCursor
	}
}
