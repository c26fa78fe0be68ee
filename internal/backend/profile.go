package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/erazemk/skrbnik/internal/model"
)

const profilePath = "/api/user/profile"

// ErrMalformed is returned when a record endpoint answers 2xx with a body
// that cannot be read as the expected record.
var ErrMalformed = errors.New("malformed response body")

// GetProfile handles GET /api/user/profile.
func (c *Client) GetProfile(ctx context.Context) (*model.Profile, error) {
	data, err := c.doJSON(ctx, http.MethodGet, profilePath, nil)
	if err != nil {
		return nil, err
	}

	var p model.Profile
	if !decodeLenient(data, &p) {
		return nil, ErrMalformed
	}
	return &p, nil
}

// UpdateProfile handles PATCH /api/user/profile.
func (c *Client) UpdateProfile(ctx context.Context, update model.UserUpdate) (*model.Profile, error) {
	data, err := c.doJSON(ctx, http.MethodPatch, profilePath, update)
	if err != nil {
		return nil, err
	}

	var p model.Profile
	if !decodeLenient(data, &p) {
		return nil, ErrMalformed
	}
	return &p, nil
}

// UploadProfileImage handles POST /api/user/profile/image.
func (c *Client) UploadProfileImage(ctx context.Context, f File) error {
	_, err := c.doFile(ctx, http.MethodPost, profilePath+"/image", f)
	return err
}

// RemoveProfileImage handles DELETE /api/user/profile/image.
func (c *Client) RemoveProfileImage(ctx context.Context) error {
	_, err := c.doJSON(ctx, http.MethodDelete, profilePath+"/image", nil)
	return err
}
