package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/example/shopdash/pkg/forms"
	"github.com/example/shopdash/pkg/models"
)

func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/dashboard-stats"}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

type productsEnvelope struct {
	Products []models.Product `json:"products"`
}

type productEnvelope struct {
	Product models.Product `json:"product"`
}

func (c *Client) AdminProducts(ctx context.Context) ([]models.Product, error) {
	var env productsEnvelope
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/products"}, &env); err != nil {
		return nil, err
	}
	return env.Products, nil
}

func (c *Client) CreateProduct(ctx context.Context, form forms.Product) (*models.Product, error) {
	if err := forms.Validate(form); err != nil {
		return nil, invalid(err)
	}
	var env productEnvelope
	if err := c.do(ctx, request{method: http.MethodPost, path: "/admin/product", body: form}, &env); err != nil {
		return nil, err
	}
	return &env.Product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, form forms.Product) (*models.Product, error) {
	if err := forms.Validate(form); err != nil {
		return nil, invalid(err)
	}
	var env productEnvelope
	if err := c.do(ctx, request{method: http.MethodPut, path: "/admin/product/" + url.PathEscape(id), body: form}, &env); err != nil {
		return nil, err
	}
	return &env.Product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/admin/product/" + url.PathEscape(id)}, nil)
}

type usersEnvelope struct {
	Users []models.User `json:"users"`
}

func (c *Client) AdminUsers(ctx context.Context) ([]models.User, error) {
	var env usersEnvelope
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/users"}, &env); err != nil {
		return nil, err
	}
	return env.Users, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/admin/user/" + url.PathEscape(id)}, nil)
}

type sellersEnvelope struct {
	Sellers []models.User `json:"sellers"`
}

// AdminSellers lists shops. They share the user shape and are tagged with
// the seller role.
func (c *Client) AdminSellers(ctx context.Context) ([]models.User, error) {
	var env sellersEnvelope
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/sellers"}, &env); err != nil {
		return nil, err
	}
	for i := range env.Sellers {
		if env.Sellers[i].Role == "" {
			env.Sellers[i].Role = models.RoleSeller
		}
	}
	return env.Sellers, nil
}

func (c *Client) DeleteSeller(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/admin/seller/" + url.PathEscape(id)}, nil)
}

type eventsEnvelope struct {
	Events []models.Event `json:"events"`
}

func (c *Client) AdminEvents(ctx context.Context) ([]models.Event, error) {
	var env eventsEnvelope
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/events"}, &env); err != nil {
		return nil, err
	}
	return env.Events, nil
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/admin/event/" + url.PathEscape(id)}, nil)
}
