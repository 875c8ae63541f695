package backend

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/example/shopdash/pkg/forms"
	"github.com/example/shopdash/pkg/models"
)

type ordersEnvelope struct {
	Success bool           `json:"success"`
	Orders  []models.Order `json:"orders"`
}

type orderEnvelope struct {
	Success bool         `json:"success"`
	Order   models.Order `json:"order"`
}

func (c *Client) listOrders(ctx context.Context, path string) ([]models.Order, error) {
	var env ordersEnvelope
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &env); err != nil {
		return nil, err
	}
	for i := range env.Orders {
		c.checkStatus(&env.Orders[i])
	}
	return env.Orders, nil
}

// checkStatus logs a status spelling the dashboard does not know. The order
// keeps it verbatim and is shown as is.
func (c *Client) checkStatus(o *models.Order) {
	if !o.Status.Known() {
		c.logger.Warn("Unknown order status",
			zap.String("order", o.ID),
			zap.String("status", string(o.Status)))
	}
}

// UserOrders lists the orders of the logged in customer.
func (c *Client) UserOrders(ctx context.Context) ([]models.Order, error) {
	return c.listOrders(ctx, "/order/get-all-orders")
}

func (c *Client) SellerOrders(ctx context.Context, shopID string) ([]models.Order, error) {
	return c.listOrders(ctx, "/order/get-seller-all-orders/"+url.PathEscape(shopID))
}

func (c *Client) AdminOrders(ctx context.Context) ([]models.Order, error) {
	return c.listOrders(ctx, "/order/admin-all-orders")
}

func (c *Client) CreateOrder(ctx context.Context, form forms.Order) (*models.Order, error) {
	if err := forms.Validate(form); err != nil {
		return nil, invalid(err)
	}
	var env orderEnvelope
	if err := c.do(ctx, request{method: http.MethodPost, path: "/order/create-order", body: form}, &env); err != nil {
		return nil, err
	}
	c.checkStatus(&env.Order)
	return &env.Order, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, form forms.StatusUpdate) error {
	if err := forms.Validate(form); err != nil {
		return invalid(err)
	}
	st, _ := models.ParseStatus(form.Status)
	body := forms.StatusUpdate{Status: string(st)}
	return c.do(ctx, request{method: http.MethodPut, path: "/order/update-order-status/" + url.PathEscape(id), body: body}, nil)
}
