package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/shopdash/pkg/models"
)

type dataEnvelope[T any] struct {
	Data []T `json:"data"`
}

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var env dataEnvelope[models.Category]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/categories"}, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Ping checks the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Categories(ctx)
	return err
}

// Subcategories lists subcategories. A non-empty search narrows them on the
// backend.
func (c *Client) Subcategories(ctx context.Context, search string) ([]models.Subcategory, error) {
	var q url.Values
	if search != "" {
		q = url.Values{"search": {search}}
	}
	var env dataEnvelope[models.Subcategory]
	if err := c.do(ctx, request{method: http.MethodGet, path: "/subcategories", query: q}, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// PageQuery pages through a category listing.
type PageQuery struct {
	Limit  int
	Offset int
	Type   string
}

func (q PageQuery) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	return v
}

type SearchQuery struct {
	Name       string
	CategoryID string
	Limit      int
	Offset     int
}

func (q SearchQuery) values() url.Values {
	v := PageQuery{Limit: q.Limit, Offset: q.Offset}.values()
	if q.Name != "" {
		v.Set("name", q.Name)
	}
	if q.CategoryID != "" {
		v.Set("category_id", q.CategoryID)
	}
	return v
}

func (c *Client) CategoryProducts(ctx context.Context, categoryID string, q PageQuery) (*models.Page, error) {
	var page models.Page
	r := request{method: http.MethodGet, path: "/product/categories/items/" + url.PathEscape(categoryID), query: q.values()}
	if err := c.do(ctx, r, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) SearchProducts(ctx context.Context, q SearchQuery) (*models.Page, error) {
	var page models.Page
	if err := c.do(ctx, request{method: http.MethodGet, path: "/product/items/search", query: q.values()}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
