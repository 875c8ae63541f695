package rows

import (
	"strconv"
	"strings"
	"time"

	"github.com/example/shopdash/pkg/filter"
	"github.com/example/shopdash/pkg/format"
	"github.com/example/shopdash/pkg/models"
)

type ProductRow struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Subcategory   string          `json:"subcategory"`
	Tags          string          `json:"tags"`
	Price         string          `json:"price"`
	OriginalPrice string          `json:"originalPrice"`
	Discount      string          `json:"discount"`
	Stock         string          `json:"stock"`
	Unit          string          `json:"unit"`
	Sold          string          `json:"sold"`
	Image         string          `json:"image"`
	CreatedDate   string          `json:"createdDate"`
	Created       time.Time       `json:"-"`
	Record        *models.Product `json:"-"`

	search []string
}

func (r ProductRow) RowID() string           { return r.ID }
func (r ProductRow) Source() *models.Product { return r.Record }

func (p Projector) Product(pr *models.Product) ProductRow {
	return ProductRow{
		ID:            pr.ID,
		Name:          format.Text(pr.Name),
		Category:      format.Text(pr.Category.Label()),
		Subcategory:   format.Text(pr.Subcategory.Label()),
		Tags:          format.Text(strings.Join(pr.Tags, ", ")),
		Price:         format.Currency(pr.Price()),
		OriginalPrice: format.Currency(pr.OriginalPrice),
		Discount:      discount(pr.OriginalPrice, pr.DiscountPrice),
		Stock:         strconv.Itoa(pr.Stock),
		Unit:          unit(pr.UnitCount, pr.Unit),
		Sold:          strconv.Itoa(pr.Sold),
		Image:         firstImage(pr.Images),
		CreatedDate:   p.date(pr.CreatedAt.Time),
		Created:       pr.CreatedAt.Time,
		Record:        pr,
		search:        []string{pr.Name, pr.ID, pr.Category.Label(), pr.Subcategory.Label()},
	}
}

func (p Projector) Products(products []models.Product) []ProductRow {
	out := make([]ProductRow, len(products))
	for i := range products {
		out[i] = p.Product(&products[i])
	}
	return out
}

var ProductFields = filter.Fields[ProductRow]{
	Text: func(r ProductRow) []string {
		return r.search
	},
	Dates: func(r ProductRow) []time.Time {
		return []time.Time{r.Created}
	},
}

func discount(original float64, price *float64) string {
	pct := format.DiscountPercent(original, price)
	if pct == 0 {
		return format.NA
	}
	return strconv.Itoa(pct) + "% OFF"
}

func unit(count float64, name string) string {
	if name == "" {
		return format.NA
	}
	if count == 0 {
		return name
	}
	return strconv.FormatFloat(count, 'f', -1, 64) + " " + name
}

func firstImage(images models.Images) string {
	if len(images) == 0 {
		return format.NA
	}
	return format.Text(images[0].URL)
}
