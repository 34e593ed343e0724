package notion

import (
	"context"
	"fmt"

	"github.com/powerflow-sync/powerflow/internal/blocks"
	"github.com/powerflow-sync/powerflow/internal/model"
)

type parent struct {
	DatabaseID string `json:"database_id"`
}

type createPageRequest struct {
	Parent     parent              `json:"parent"`
	Properties blocks.Properties   `json:"properties"`
	Icon       *blocks.IconPayload `json:"icon,omitempty"`
	Children   []blocks.Block      `json:"children,omitempty"`
}

type appendRequest struct {
	Children []blocks.Block `json:"children"`
}

type objectResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreatePage creates a page in the database. Notion accepts at most
// blocks.MaxChildren blocks per request, so longer bodies are appended in
// follow-up requests. If an append fails the page id is returned together
// with the error.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props blocks.Properties, icon model.Icon, children []blocks.Block) (string, error) {
	first, rest := splitChildren(children)

	req := createPageRequest{
		Parent:     parent{DatabaseID: databaseID},
		Properties: props,
		Children:   first,
	}
	if icon.Emoji != "" {
		payload := blocks.EmojiIcon(icon)
		req.Icon = &payload
	}

	var page objectResponse
	if err := c.api.Post(ctx, "/pages", req, &page); err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}

	for len(rest) > 0 {
		var batch []blocks.Block
		batch, rest = splitChildren(rest)
		if err := c.api.Patch(ctx, "/blocks/"+page.ID+"/children", appendRequest{Children: batch}, nil); err != nil {
			return page.ID, fmt.Errorf("page %s created but appending content failed: %w", page.ID, err)
		}
	}

	return page.ID, nil
}

func splitChildren(children []blocks.Block) (head, tail []blocks.Block) {
	if len(children) <= blocks.MaxChildren {
		return children, nil
	}
	return children[:blocks.MaxChildren], children[blocks.MaxChildren:]
}
