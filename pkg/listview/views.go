package listview

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/example/shopdash/pkg/backend"
	"github.com/example/shopdash/pkg/models"
	"github.com/example/shopdash/pkg/preview"
	"github.com/example/shopdash/pkg/rows"
)

// View names served by the dashboard.
const (
	AdminOrders          = "admin-orders"
	SellerOrders         = "seller-orders"
	UserOrders           = "user-orders"
	RecentOrders         = "recent-orders"
	AdminDashboardOrders = "admin-dashboard-orders"
	RefundOrders         = "refund-orders"
	AdminUsers           = "admin-users"
	AdminSellers         = "admin-sellers"
	AdminProducts        = "admin-products"
	AdminEvents          = "admin-events"
	Subcategories        = "subcategories"
)

// recentLimit is how many orders the dashboard widgets show.
const recentLimit = 10

var (
	ErrUnknownView = errors.New("unknown view")
	ErrForbidden   = errors.New("view not available to this role")
	ErrNoShop      = errors.New("seller token carries no shop id")
)

// Principal is the signed in user a session's views fetch for.
type Principal struct {
	UserID string
	Role   models.Role
	ShopID string
}

// Factory builds one named view for a principal.
type Factory struct {
	Name  string
	Roles []models.Role
	New   func(c *backend.Client, p Principal, opts Options) View
}

// Allows reports whether role may open the view. Admins may open every view.
func (f Factory) Allows(role models.Role) bool {
	return role == models.RoleAdmin || slices.Contains(f.Roles, role)
}

var (
	admin  = []models.Role{models.RoleAdmin}
	seller = []models.Role{models.RoleSeller}
	anyone = []models.Role{models.RoleUser, models.RoleSeller, models.RoleAdmin}
)

// Catalog lists every view by name.
func Catalog() map[string]Factory {
	fs := []Factory{
		{Name: AdminOrders, Roles: admin, New: func(c *backend.Client, _ Principal, o Options) View {
			return orderView(AdminOrders, c.AdminOrders, rows.Projector.Orders, o)
		}},
		{Name: AdminDashboardOrders, Roles: admin, New: func(c *backend.Client, _ Principal, o Options) View {
			return orderView(AdminDashboardOrders, newest(c.AdminOrders), rows.Projector.Orders, o)
		}},
		{Name: SellerOrders, Roles: seller, New: func(c *backend.Client, p Principal, o Options) View {
			return orderView(SellerOrders, shopOrders(c, p), rows.Projector.Orders, o)
		}},
		{Name: RecentOrders, Roles: seller, New: func(c *backend.Client, p Principal, o Options) View {
			return orderView(RecentOrders, newest(shopOrders(c, p)), rows.Projector.Orders, o)
		}},
		{Name: RefundOrders, Roles: seller, New: func(c *backend.Client, p Principal, o Options) View {
			return orderView(RefundOrders, shopOrders(c, p), rows.Projector.Refunds, o)
		}},
		{Name: UserOrders, Roles: anyone, New: func(c *backend.Client, _ Principal, o Options) View {
			return orderView(UserOrders, c.UserOrders, rows.Projector.Orders, o)
		}},
		{Name: AdminUsers, Roles: admin, New: func(c *backend.Client, _ Principal, o Options) View {
			return userView(AdminUsers, "User", c.AdminUsers, c.DeleteUser, o)
		}},
		{Name: AdminSellers, Roles: admin, New: func(c *backend.Client, _ Principal, o Options) View {
			return userView(AdminSellers, "Seller", c.AdminSellers, c.DeleteSeller, o)
		}},
		{Name: AdminProducts, Roles: admin, New: func(c *backend.Client, _ Principal, o Options) View {
			return NewController(Definition[models.Product, rows.ProductRow]{
				Name:    AdminProducts,
				Noun:    "Product",
				Fetch:   ignoreSearch(c.AdminProducts),
				Delete:  c.DeleteProduct,
				Project: rows.Projector.Products,
				Fields:  rows.ProductFields,
				Preview: preview.Product,
			}, o)
		}},
		{Name: AdminEvents, Roles: admin, New: func(c *backend.Client, _ Principal, o Options) View {
			return NewController(Definition[models.Event, rows.EventRow]{
				Name:    AdminEvents,
				Noun:    "Event",
				Fetch:   ignoreSearch(c.AdminEvents),
				Delete:  c.DeleteEvent,
				Project: rows.Projector.Events,
				Fields:  rows.EventFields,
				Preview: preview.Event,
			}, o)
		}},
		{Name: Subcategories, Roles: admin, New: func(c *backend.Client, _ Principal, o Options) View {
			return NewController(Definition[models.Subcategory, rows.SubcategoryRow]{
				Name:         Subcategories,
				Noun:         "Subcategory",
				Fetch:        c.Subcategories,
				Project:      rows.Projector.Subcategories,
				Fields:       rows.SubcategoryFields,
				Preview:      preview.Subcategory,
				ServerSearch: true,
			}, o)
		}},
	}
	out := make(map[string]Factory, len(fs))
	for _, f := range fs {
		out[f.Name] = f
	}
	return out
}

// Names returns the catalog's view names in a stable order.
func Names() []string {
	names := make([]string, 0)
	for name := range Catalog() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type orderFetch func(ctx context.Context) ([]models.Order, error)

func orderView(name string, fetch orderFetch, project func(rows.Projector, []models.Order) []rows.OrderRow, o Options) View {
	return NewController(Definition[models.Order, rows.OrderRow]{
		Name:    name,
		Noun:    "Order",
		Fetch:   ignoreSearch(fetch),
		Project: project,
		Fields:  rows.OrderFields,
		Preview: preview.Order,
	}, o)
}

func userView(name, noun string, fetch func(context.Context) ([]models.User, error), del func(context.Context, string) error, o Options) View {
	return NewController(Definition[models.User, rows.UserRow]{
		Name:    name,
		Noun:    noun,
		Fetch:   ignoreSearch(fetch),
		Delete:  del,
		Project: rows.Projector.Users,
		Fields:  rows.UserFields,
		Preview: preview.User,
	}, o)
}

func shopOrders(c *backend.Client, p Principal) orderFetch {
	return func(ctx context.Context) ([]models.Order, error) {
		if p.ShopID == "" {
			return nil, ErrNoShop
		}
		return c.SellerOrders(ctx, p.ShopID)
	}
}

// newest keeps the most recently created orders, newest first.
func newest(fetch orderFetch) orderFetch {
	return func(ctx context.Context) ([]models.Order, error) {
		orders, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(orders, func(i, j int) bool {
			return orders[i].CreatedAt.Time.After(orders[j].CreatedAt.Time)
		})
		if len(orders) > recentLimit {
			orders = orders[:recentLimit]
		}
		return orders, nil
	}
}

func ignoreSearch[T any](fetch func(context.Context) ([]T, error)) func(context.Context, string) ([]T, error) {
	return func(ctx context.Context, _ string) ([]T, error) {
		return fetch(ctx)
	}
}

// DefaultOptions fills the options every view of a session shares.
func DefaultOptions(session string, loc *time.Location, debounce time.Duration, keepStale bool) Options {
	return Options{
		Session:   session,
		Projector: rows.NewProjector(loc),
		Debounce:  debounce,
		KeepStale: keepStale,
	}
}
