package rows

import (
	"strconv"
	"time"

	"github.com/example/shopdash/pkg/filter"
	"github.com/example/shopdash/pkg/format"
	"github.com/example/shopdash/pkg/models"
)

type OrderRow struct {
	ID          string        `json:"id"`
	DisplayID   string        `json:"displayId"`
	Customer    string        `json:"customer"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone"`
	ItemsQty    string        `json:"itemsQty"`
	Total       string        `json:"total"`
	Status      string        `json:"status"`
	Payment     string        `json:"payment"`
	CreatedDate string        `json:"createdDate"`
	CreatedTime string        `json:"createdTime"`
	Created     time.Time     `json:"-"`
	Record      *models.Order `json:"-"`

	search []string
}

func (r OrderRow) RowID() string         { return r.ID }
func (r OrderRow) Source() *models.Order { return r.Record }

func (p Projector) Order(o *models.Order) OrderRow {
	return OrderRow{
		ID:          o.ID,
		DisplayID:   models.ShortID(o.ID),
		Customer:    format.Text(o.User.Name),
		Email:       format.Text(o.User.Email),
		Phone:       format.Text(o.User.Phone.String()),
		ItemsQty:    strconv.Itoa(o.ItemCount()),
		Total:       format.Currency(o.TotalPrice),
		Status:      format.Text(string(o.Status)),
		Payment:     format.Text(o.PaymentInfo.Status),
		CreatedDate: p.date(o.CreatedAt.Time),
		CreatedTime: p.clock(o.CreatedAt.Time),
		Created:     o.CreatedAt.Time,
		Record:      o,
		search:      []string{models.ShortID(o.ID), o.User.Name, string(o.Status)},
	}
}

// Orders projects every order. The rows point into orders.
func (p Projector) Orders(orders []models.Order) []OrderRow {
	out := make([]OrderRow, len(orders))
	for i := range orders {
		out[i] = p.Order(&orders[i])
	}
	return out
}

// Refunds projects only the orders in the refund workflow.
func (p Projector) Refunds(orders []models.Order) []OrderRow {
	out := make([]OrderRow, 0)
	for i := range orders {
		if orders[i].Status.IsRefund() {
			out = append(out, p.Order(&orders[i]))
		}
	}
	return out
}

// OrderFields matches the id as displayed ('#' plus its last six characters),
// the customer name and the status. A missing customer name matches nothing,
// not the placeholder shown in its cell.
var OrderFields = filter.Fields[OrderRow]{
	Text: func(r OrderRow) []string {
		return r.search
	},
	Dates: func(r OrderRow) []time.Time {
		return []time.Time{r.Created}
	},
}
