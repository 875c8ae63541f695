// Package forms holds the dashboard's create and update payloads and checks
// them before any request is issued.
package forms

import (
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/shopdash/pkg/models"
)

// FieldErrors maps a JSON field name to a message.
type FieldErrors map[string]string

// Error is returned when a form fails validation.
type Error struct {
	Fields FieldErrors
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return "invalid form: " + strings.Join(keys, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseStatus(fl.Field().String())
		return ok
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		p := sl.Current().Interface().(Product)
		if p.DiscountPrice != nil && *p.DiscountPrice > p.OriginalPrice {
			sl.ReportError(p.DiscountPrice, "discountPrice", "DiscountPrice", "ltefield", "originalPrice")
		}
	}, Product{})
	return v
}

// Validate checks any of the form structs in this package.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range ve {
		out[fieldKey(fe.Namespace())] = messageForTag(fe.Tag(), fe.Param())
	}
	return &Error{Fields: out}
}

// fieldKey drops the struct name from a namespace like "Product.originalPrice".
func fieldKey(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "gt":
		return "Must be greater than " + param + "."
	case "gte":
		return "Must be at least " + param + "."
	case "ltefield":
		return "Must not exceed " + param + "."
	case "min":
		return "Must have at least " + param + " entries."
	case "url":
		return "Enter a valid URL."
	case "status":
		return "Unknown order status."
	default:
		return "Invalid value."
	}
}

type Product struct {
	Name          string   `json:"name" validate:"required"`
	Description   string   `json:"description" validate:"required"`
	CategoryID    string   `json:"category" validate:"required"`
	SubcategoryID string   `json:"subcategory,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	OriginalPrice float64  `json:"originalPrice" validate:"gt=0"`
	DiscountPrice *float64 `json:"discountPrice,omitempty" validate:"omitempty,gte=0"`
	Stock         int      `json:"stock" validate:"gte=0"`
	Unit          string   `json:"unit,omitempty"`
	UnitCount     float64  `json:"unitCount,omitempty" validate:"gte=0"`
	ShopID        string   `json:"shopId,omitempty"`
}

// Order is the checkout payload posted to the order endpoint.
type Order struct {
	Cart            []OrderLine        `json:"cart" validate:"required,min=1,dive"`
	ShippingAddress models.Address     `json:"shippingAddress"`
	User            models.Customer    `json:"user"`
	TotalPrice      float64            `json:"totalPrice" validate:"gt=0"`
	PaymentInfo     models.PaymentInfo `json:"paymentInfo"`
}

type OrderLine struct {
	ProductID string  `json:"_id" validate:"required"`
	Name      string  `json:"name"`
	Quantity  int     `json:"qty" validate:"gt=0"`
	UnitPrice float64 `json:"discountPrice" validate:"gte=0"`
	ShopID    string  `json:"shopId,omitempty"`
}

type StatusUpdate struct {
	Status string `json:"status" validate:"required,status"`
}

// Banner is sent as multipart/form-data; Image is required on create only.
type Banner struct {
	Title    string    `json:"title" validate:"required"`
	Link     string    `json:"link" validate:"omitempty,url"`
	Active   bool      `json:"active"`
	Image    io.Reader `json:"-"`
	Filename string    `json:"-"`
}

// ValidateNewBanner also requires the image.
func ValidateNewBanner(b Banner) error {
	err := Validate(b)
	if b.Image != nil && b.Filename != "" {
		return err
	}
	var fe *Error
	if errors.As(err, &fe) {
		fe.Fields["image"] = messageForTag("required", "")
		return fe
	}
	if err != nil {
		return err
	}
	return &Error{Fields: FieldErrors{"image": messageForTag("required", "")}}
}
