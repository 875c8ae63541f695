package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/shopdash/pkg/forms"
	"github.com/example/shopdash/pkg/models"
)

type bannersEnvelope struct {
	Banners []models.Banner `json:"banners"`
}

type bannerEnvelope struct {
	Banner models.Banner `json:"banner"`
}

func bannerForm(b forms.Banner) *multipartForm {
	return &multipartForm{
		fields: map[string]string{
			"title":  b.Title,
			"link":   b.Link,
			"active": strconv.FormatBool(b.Active),
		},
		file:     b.Image,
		fileName: b.Filename,
	}
}

func (c *Client) Banners(ctx context.Context) ([]models.Banner, error) {
	var env bannersEnvelope
	if err := c.do(ctx, request{method: http.MethodGet, path: "/banner"}, &env); err != nil {
		return nil, err
	}
	return env.Banners, nil
}

func (c *Client) CreateBanner(ctx context.Context, b forms.Banner) (*models.Banner, error) {
	if err := forms.ValidateNewBanner(b); err != nil {
		return nil, invalid(err)
	}
	var env bannerEnvelope
	if err := c.do(ctx, request{method: http.MethodPost, path: "/banner", form: bannerForm(b)}, &env); err != nil {
		return nil, err
	}
	return &env.Banner, nil
}

// UpdateBanner keeps the stored image when b carries none.
func (c *Client) UpdateBanner(ctx context.Context, id string, b forms.Banner) (*models.Banner, error) {
	if err := forms.Validate(b); err != nil {
		return nil, invalid(err)
	}
	var env bannerEnvelope
	r := request{method: http.MethodPut, path: "/banner/" + url.PathEscape(id), form: bannerForm(b)}
	if err := c.do(ctx, r, &env); err != nil {
		return nil, err
	}
	return &env.Banner, nil
}

func (c *Client) DeleteBanner(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/banner/" + url.PathEscape(id)}, nil)
}
