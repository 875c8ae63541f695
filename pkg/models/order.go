package models

// Order is an order as returned by the order endpoints. Customer, address and
// payment are snapshots taken when the order was placed.
type Order struct {
	ID              string      `json:"_id"`
	Cart            []OrderItem `json:"cart"`
	ShippingAddress Address     `json:"shippingAddress"`
	User            Customer    `json:"user"`
	TotalPrice      float64     `json:"totalPrice"`
	Status          Status      `json:"status"`
	PaymentInfo     PaymentInfo `json:"paymentInfo"`
	PaidAt          Timestamp   `json:"paidAt"`
	DeliveredAt     Timestamp   `json:"deliveredAt"`
	CreatedAt       Timestamp   `json:"createdAt"`
}

// OrderItem is one cart line.
type OrderItem struct {
	ProductID string  `json:"_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"qty"`
	UnitPrice float64 `json:"discountPrice"`
	ShopID    string  `json:"shopId,omitempty"`
	Images    Images  `json:"images,omitempty"`
}

type Customer struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone Flex   `json:"phoneNumber"`
}

type Address struct {
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	Country     string `json:"country"`
	ZipCode     Flex   `json:"zipCode"`
	AddressType string `json:"addressType"`
}

type PaymentInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Type   string `json:"type"`
}

// ItemCount sums the quantities of every cart line.
func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Cart {
		n += it.Quantity
	}
	return n
}

// ShortID is the order id as displayed in tables: '#' and its last six characters.
func ShortID(id string) string {
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return "#" + id
}
