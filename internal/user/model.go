package user

import (
	"time"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
)

// User is an account that can sign in and place orders.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city,omitempty"`
	PostalCode   string    `json:"postalCode,omitempty"`
	Country      string    `json:"country,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) Principal() *auth.Principal {
	return &auth.Principal{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
	}
}
