package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erazemk/skrbnik/internal/model"
)

// ListItems handles GET /api/item.
func (c *Client) ListItems(ctx context.Context) ([]model.Item, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/api/item", nil)
	if err != nil {
		return nil, err
	}

	var items []model.Item
	if !decodeLenient(data, &items) {
		return nil, fmt.Errorf("listing items: %w", ErrNotList)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// CreateItem handles POST /api/item. The returned item is nil when the
// backend answers without a readable body.
func (c *Client) CreateItem(ctx context.Context, form model.ItemForm) (*model.Item, error) {
	data, err := c.doJSON(ctx, http.MethodPost, "/api/item", form)
	if err != nil {
		return nil, err
	}

	var item model.Item
	if !decodeLenient(data, &item) {
		return nil, nil
	}
	return &item, nil
}

// DeleteItem handles DELETE /api/item/{id}.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, itemPath(id), nil)
	return err
}
