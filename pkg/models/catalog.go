package models

type Category struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Image Image  `json:"image"`
}

type Subcategory struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Category  Ref       `json:"category"`
	CreatedAt Timestamp `json:"createdAt"`
}

type Banner struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Image     Image     `json:"image"`
	Active    bool      `json:"active"`
	CreatedAt Timestamp `json:"createdAt"`
}

type DashboardStats struct {
	TotalOrders  int     `json:"totalOrders"`
	TotalRevenue float64 `json:"totalRevenue"`
	TotalSellers int     `json:"totalSellers"`
	TotalUsers   int     `json:"totalUsers"`
}

// Page is one page of a paginated product listing.
type Page struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
}
