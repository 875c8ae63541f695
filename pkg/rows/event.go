package rows

import (
	"strconv"
	"time"

	"github.com/example/shopdash/pkg/filter"
	"github.com/example/shopdash/pkg/format"
	"github.com/example/shopdash/pkg/models"
)

type EventRow struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Category      string        `json:"category"`
	Price         string        `json:"price"`
	OriginalPrice string        `json:"originalPrice"`
	Discount      string        `json:"discount"`
	Stock         string        `json:"stock"`
	Sold          string        `json:"sold"`
	StartDate     string        `json:"startDate"`
	EndDate       string        `json:"endDate"`
	CreatedDate   string        `json:"createdDate"`
	Created       time.Time     `json:"-"`
	Start         time.Time     `json:"-"`
	End           time.Time     `json:"-"`
	Record        *models.Event `json:"-"`

	search []string
}

func (r EventRow) RowID() string         { return r.ID }
func (r EventRow) Source() *models.Event { return r.Record }

// Event prices are shown without decimals.
func (p Projector) Event(e *models.Event) EventRow {
	return EventRow{
		ID:            e.ID,
		Name:          format.Text(e.Name),
		Category:      format.Text(e.Category.Label()),
		Price:         format.EventPrice(e.Price()),
		OriginalPrice: format.EventPrice(e.OriginalPrice),
		Discount:      discount(e.OriginalPrice, e.DiscountPrice),
		Stock:         strconv.Itoa(e.Stock),
		Sold:          strconv.Itoa(e.Sold),
		StartDate:     p.date(e.StartDate.Time),
		EndDate:       p.date(e.EndDate.Time),
		CreatedDate:   p.date(e.CreatedAt.Time),
		Created:       e.CreatedAt.Time,
		Start:         e.StartDate.Time,
		End:           e.EndDate.Time,
		Record:        e,
		search:        []string{e.Name, e.ID, e.Category.Label()},
	}
}

func (p Projector) Events(events []models.Event) []EventRow {
	out := make([]EventRow, len(events))
	for i := range events {
		out[i] = p.Event(&events[i])
	}
	return out
}

// EventFields passes the date bound when any of created, start or end date is
// on or after it.
var EventFields = filter.Fields[EventRow]{
	Text: func(r EventRow) []string {
		return r.search
	},
	Dates: func(r EventRow) []time.Time {
		return []time.Time{r.Created, r.Start, r.End}
	},
}
