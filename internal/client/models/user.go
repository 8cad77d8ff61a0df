// Package models holds the JSON records exchanged with the three pantry
// backends. Field names follow the backends' snake_case wire format.
package models

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleChef     Role = "CHEF"
	RoleManager  Role = "MANAGER"
	RoleStore    Role = "store"
	RoleCustomer Role = "customer"
)

// User is the kindergarten backend's account record (also /users/me/).
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type UserCreate struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

// Token is the body returned by POST /login/.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
