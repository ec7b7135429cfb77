// model/user.go
package model

import "time"

// DefaultAllowedRentals is the rental quota assigned at registration.
const DefaultAllowedRentals = 5

type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	AllowedRentals int       `json:"allowed_rentals"`
	CurrentRentals int       `json:"current_rentals"`
	LateFee        float64   `json:"late_fee"`
	AllowedToRent  bool      `json:"allowed_to_rent"`
	Deleted        bool      `json:"deleted"`
	CreatedAt      time.Time `json:"created_at"`
}

// RegisterReq represents user registration payload
// swagger:model RegisterReq
type RegisterReq struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginReq represents login payload
// swagger:model LoginReq
type LoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
