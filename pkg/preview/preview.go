// Package preview renders one full record for the read-only preview modal.
package preview

import (
	"strconv"
	"strings"
	"time"

	"github.com/example/shopdash/pkg/format"
	"github.com/example/shopdash/pkg/models"
)

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Section struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// View is the rendered content of the modal.
type View struct {
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle,omitempty"`
	Images   []string  `json:"images,omitempty"`
	Sections []Section `json:"sections"`
}

// Renderer turns a record into a View. It only formats.
type Renderer[T any] func(*T) View

// Modal is a controlled preview. It renders nothing unless it is open and
// holds a record, and Close is the only way to dismiss it.
type Modal[T any] struct {
	IsOpen  bool
	Record  *T
	OnClose func()

	render Renderer[T]
}

func NewModal[T any](render Renderer[T], onClose func()) *Modal[T] {
	return &Modal[T]{render: render, OnClose: onClose}
}

func (m *Modal[T]) Open(record *T) {
	m.Record = record
	m.IsOpen = true
}

func (m *Modal[T]) Close() {
	m.IsOpen = false
	m.Record = nil
	if m.OnClose != nil {
		m.OnClose()
	}
}

// Render returns the view and true, or false when there is nothing to show.
func (m *Modal[T]) Render() (View, bool) {
	if m == nil || !m.IsOpen || m.Record == nil || m.render == nil {
		return View{}, false
	}
	return m.render(m.Record), true
}

func local(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() || loc == nil {
		return t
	}
	return t.In(loc)
}

func images(im models.Images) []string {
	out := make([]string, 0, len(im))
	for _, i := range im {
		if i.URL != "" {
			out = append(out, i.URL)
		}
	}
	return out
}

// Order renders an order with its customer, items, address and payment.
func Order(loc *time.Location) Renderer[models.Order] {
	return func(o *models.Order) View {
		created := local(o.CreatedAt.Time, loc)
		items := make([]Field, 0, len(o.Cart))
		for _, it := range o.Cart {
			items = append(items, Field{
				Label: format.Text(it.Name) + " x " + strconv.Itoa(it.Quantity),
				Value: format.Currency(it.UnitPrice * float64(it.Quantity)),
			})
		}
		a := o.ShippingAddress
		return View{
			Title:    "Order " + models.ShortID(o.ID),
			Subtitle: format.Date(created) + " " + format.Time(created),
			Sections: []Section{
				{Title: "Customer", Fields: []Field{
					{"Name", format.Text(o.User.Name)},
					{"Email", format.Text(o.User.Email)},
					{"Phone", format.Text(o.User.Phone.String())},
				}},
				{Title: "Items", Fields: items},
				{Title: "Summary", Fields: []Field{
					{"Status", format.Text(string(o.Status))},
					{"Total", format.Currency(o.TotalPrice)},
				}},
				{Title: "Shipping address", Fields: []Field{
					{"Address", format.Text(strings.TrimSpace(a.Address1 + " " + a.Address2))},
					{"City", format.Text(a.City)},
					{"Country", format.Text(a.Country)},
					{"Zip code", format.Text(a.ZipCode.String())},
				}},
				{Title: "Payment", Fields: []Field{
					{"Type", format.Text(o.PaymentInfo.Type)},
					{"Status", format.Text(o.PaymentInfo.Status)},
					{"Paid", format.Date(local(o.PaidAt.Time, loc))},
				}},
			},
		}
	}
}

func Product(loc *time.Location) Renderer[models.Product] {
	return func(p *models.Product) View {
		discount := format.NA
		if pct := format.DiscountPercent(p.OriginalPrice, p.DiscountPrice); pct > 0 {
			discount = strconv.Itoa(pct) + "%"
		}
		return View{
			Title:    format.Text(p.Name),
			Subtitle: format.Text(p.Description),
			Images:   images(p.Images),
			Sections: []Section{
				{Title: "Pricing", Fields: []Field{
					{"Price", format.Currency(p.Price())},
					{"Original price", format.Currency(p.OriginalPrice)},
					{"Discount", discount},
				}},
				{Title: "Inventory", Fields: []Field{
					{"Stock", strconv.Itoa(p.Stock)},
					{"Sold", strconv.Itoa(p.Sold)},
					{"Unit", format.Text(p.Unit)},
				}},
				{Title: "Catalog", Fields: []Field{
					{"Category", format.Text(p.Category.Label())},
					{"Subcategory", format.Text(p.Subcategory.Label())},
					{"Tags", format.Text(strings.Join(p.Tags, ", "))},
					{"Shop", format.Text(p.Shop.Label())},
					{"Created", format.Date(local(p.CreatedAt.Time, loc))},
				}},
			},
		}
	}
}

func User(loc *time.Location) Renderer[models.User] {
	return func(u *models.User) View {
		return View{
			Title: format.Text(u.Name),
			Sections: []Section{
				{Title: "Account", Fields: []Field{
					{"Email", format.Text(u.Email)},
					{"Phone", format.Text(u.Phone.String())},
					{"Role", format.Text(string(u.Role))},
					{"Joined", format.Date(local(u.CreatedAt.Time, loc))},
				}},
			},
		}
	}
}

func Event(loc *time.Location) Renderer[models.Event] {
	return func(e *models.Event) View {
		return View{
			Title:    format.Text(e.Name),
			Subtitle: format.Text(e.Description),
			Images:   images(e.Images),
			Sections: []Section{
				{Title: "Pricing", Fields: []Field{
					{"Price", format.EventPrice(e.Price())},
					{"Original price", format.EventPrice(e.OriginalPrice)},
				}},
				{Title: "Schedule", Fields: []Field{
					{"Starts", format.Date(local(e.StartDate.Time, loc))},
					{"Ends", format.Date(local(e.EndDate.Time, loc))},
				}},
				{Title: "Inventory", Fields: []Field{
					{"Stock", strconv.Itoa(e.Stock)},
					{"Sold", strconv.Itoa(e.Sold)},
				}},
			},
		}
	}
}

func Subcategory(loc *time.Location) Renderer[models.Subcategory] {
	return func(s *models.Subcategory) View {
		return View{
			Title: format.Text(s.Name),
			Sections: []Section{
				{Title: "Details", Fields: []Field{
					{"Category", format.Text(s.Category.Label())},
					{"Created", format.Date(local(s.CreatedAt.Time, loc))},
				}},
			},
		}
	}
}
