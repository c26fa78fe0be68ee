package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erazemk/skrbnik/internal/model"
)

// ListUsers handles GET /api/user.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/api/user", nil)
	if err != nil {
		return nil, err
	}

	var users []model.User
	if !decodeLenient(data, &users) {
		return nil, fmt.Errorf("listing users: %w", ErrNotList)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// CreateUser handles POST /api/user.
func (c *Client) CreateUser(ctx context.Context, form model.NewUserForm) (*model.User, error) {
	data, err := c.doJSON(ctx, http.MethodPost, "/api/user", form)
	if err != nil {
		return nil, err
	}

	var user model.User
	if !decodeLenient(data, &user) {
		return nil, nil
	}
	return &user, nil
}

// UpdateUser handles PATCH /api/user/{id}. Only the mutable fields are sent.
// The returned user is nil when the backend answers without a readable body.
func (c *Client) UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	data, err := c.doJSON(ctx, http.MethodPatch, userPath(id), update)
	if err != nil {
		return nil, err
	}

	var user model.User
	if !decodeLenient(data, &user) {
		return nil, nil
	}
	return &user, nil
}

// DeleteUser handles DELETE /api/user/{id}.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, userPath(id), nil)
	return err
}

// UploadUserImage handles POST /api/user/{id}/image and returns the new
// image reference.
func (c *Client) UploadUserImage(ctx context.Context, id string, f File) (string, error) {
	data, err := c.doFile(ctx, http.MethodPost, userPath(id)+"/image", f)
	if err != nil {
		return "", err
	}

	var result struct {
		ImageURL string `json:"imageUrl"`
	}
	decodeLenient(data, &result)
	return result.ImageURL, nil
}

// RemoveUserImage handles DELETE /api/user/{id}/image and returns the
// backend's optional message.
func (c *Client) RemoveUserImage(ctx context.Context, id string) (string, error) {
	data, err := c.doJSON(ctx, http.MethodDelete, userPath(id)+"/image", nil)
	if err != nil {
		return "", err
	}

	var result struct {
		Message string `json:"message"`
	}
	decodeLenient(data, &result)
	return result.Message, nil
}
