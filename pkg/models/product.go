package models

type Product struct {
	ID            string    `json:"_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      Ref       `json:"category"`
	Subcategory   Ref       `json:"subcategory"`
	Tags          Tags      `json:"tags"`
	OriginalPrice float64   `json:"originalPrice"`
	DiscountPrice *float64  `json:"discountPrice"`
	Stock         int       `json:"stock"`
	Unit          string    `json:"unit"`
	UnitCount     float64   `json:"unitCount"`
	Sold          int       `json:"sold_out"`
	Images        Images    `json:"images"`
	ShopID        string    `json:"shopId"`
	Shop          Ref       `json:"shop"`
	CreatedAt     Timestamp `json:"createdAt"`
}

// Price is what the customer pays: the discount price when one is set.
func (p Product) Price() float64 {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.OriginalPrice
}

// Event is a time boxed promotion run by a shop.
type Event struct {
	ID            string    `json:"_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      Ref       `json:"category"`
	Tags          Tags      `json:"tags"`
	OriginalPrice float64   `json:"originalPrice"`
	DiscountPrice *float64  `json:"discountPrice"`
	Stock         int       `json:"stock"`
	Sold          int       `json:"sold_out"`
	StartDate     Timestamp `json:"start_Date"`
	EndDate       Timestamp `json:"Finish_Date"`
	Images        Images    `json:"images"`
	ShopID        string    `json:"shopId"`
	CreatedAt     Timestamp `json:"createdAt"`
}

func (e Event) Price() float64 {
	if e.DiscountPrice != nil {
		return *e.DiscountPrice
	}
	return e.OriginalPrice
}
