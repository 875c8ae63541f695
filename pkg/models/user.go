package models

// Role is a dashboard role.
type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
)

type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     Flex      `json:"phoneNumber"`
	Role      Role      `json:"role"`
	CreatedAt Timestamp `json:"createdAt"`
}
