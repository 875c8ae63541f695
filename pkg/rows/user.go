package rows

import (
	"time"

	"github.com/example/shopdash/pkg/filter"
	"github.com/example/shopdash/pkg/format"
	"github.com/example/shopdash/pkg/models"
)

type UserRow struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Email   string       `json:"email"`
	Phone   string       `json:"phone"`
	Role    string       `json:"role"`
	Joined  string       `json:"joined"`
	Created time.Time    `json:"-"`
	Record  *models.User `json:"-"`

	search []string
}

func (r UserRow) RowID() string        { return r.ID }
func (r UserRow) Source() *models.User { return r.Record }

func (p Projector) User(u *models.User) UserRow {
	return UserRow{
		ID:      u.ID,
		Name:    format.Text(u.Name),
		Email:   format.Text(u.Email),
		Phone:   format.Text(u.Phone.String()),
		Role:    format.Text(string(u.Role)),
		Joined:  p.date(u.CreatedAt.Time),
		Created: u.CreatedAt.Time,
		Record:  u,
		search:  []string{u.Name, u.Email, u.Phone.String(), u.ID, string(u.Role)},
	}
}

func (p Projector) Users(users []models.User) []UserRow {
	out := make([]UserRow, len(users))
	for i := range users {
		out[i] = p.User(&users[i])
	}
	return out
}

var UserFields = filter.Fields[UserRow]{
	Text: func(r UserRow) []string {
		return r.search
	},
	Dates: func(r UserRow) []time.Time {
		return []time.Time{r.Created}
	},
}
