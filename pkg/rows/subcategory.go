package rows

import (
	"time"

	"github.com/example/shopdash/pkg/filter"
	"github.com/example/shopdash/pkg/format"
	"github.com/example/shopdash/pkg/models"
)

type SubcategoryRow struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	CreatedDate string              `json:"createdDate"`
	Created     time.Time           `json:"-"`
	Record      *models.Subcategory `json:"-"`

	search []string
}

func (r SubcategoryRow) RowID() string               { return r.ID }
func (r SubcategoryRow) Source() *models.Subcategory { return r.Record }

func (p Projector) Subcategories(subs []models.Subcategory) []SubcategoryRow {
	out := make([]SubcategoryRow, len(subs))
	for i := range subs {
		s := &subs[i]
		out[i] = SubcategoryRow{
			ID:          s.ID,
			Name:        format.Text(s.Name),
			Category:    format.Text(s.Category.Label()),
			CreatedDate: p.date(s.CreatedAt.Time),
			Created:     s.CreatedAt.Time,
			Record:      s,
			search:      []string{s.Name, s.Category.Label()},
		}
	}
	return out
}

var SubcategoryFields = filter.Fields[SubcategoryRow]{
	Text: func(r SubcategoryRow) []string {
		return r.search
	},
	Dates: func(r SubcategoryRow) []time.Time {
		return []time.Time{r.Created}
	},
}
