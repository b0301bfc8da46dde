package user

import (
	"strings"
	"time"
)

// User is a permit holder, the vehicle owner at the end of the chain.
type User struct {
	ID               string     `json:"id"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	Address          string     `json:"address"`
	Pincode          string     `json:"pincode"`
	District         string     `json:"district"`
	State            string     `json:"state"`
	Username         string     `json:"username"`
	PermitHolderType string     `json:"permit_holder_type"`
	VehicleCount     int        `json:"vehicleCount"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// FullName joins first and last name with a single space. A blank last name
// leaves the trailing space in place; the activation form shows it verbatim.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// NewUser is the payload for creating a permit holder. Only presence is
// checked locally; the backend owns format rules.
type NewUser struct {
	FirstName        string `json:"first_name" label:"First name" validate:"required"`
	Email            string `json:"email" label:"Email" validate:"required"`
	Phone            string `json:"phone" label:"Phone" validate:"required"`
	LastName         string `json:"last_name"`
	Address          string `json:"address"`
	Pincode          string `json:"pincode"`
	District         string `json:"district"`
	State            string `json:"state"`
	Username         string `json:"username"`
	PermitHolderType string `json:"permit_holder_type"`
	Password         string `json:"password"`
}

// Normalize trims every field and fills the username default.
func (n *NewUser) Normalize() {
	n.FirstName = strings.TrimSpace(n.FirstName)
	n.LastName = strings.TrimSpace(n.LastName)
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))
	n.Phone = strings.TrimSpace(n.Phone)
	n.Address = strings.TrimSpace(n.Address)
	n.Pincode = strings.TrimSpace(n.Pincode)
	n.District = strings.TrimSpace(n.District)
	n.State = strings.TrimSpace(n.State)
	n.Username = strings.TrimSpace(n.Username)
	n.PermitHolderType = strings.TrimSpace(n.PermitHolderType)
	if n.Username == "" {
		n.Username = strings.ToLower(n.FirstName)
	}
}

// Update is a partial edit from the super-admin user table.
type Update struct {
	FirstName        *string `json:"first_name,omitempty"`
	LastName         *string `json:"last_name,omitempty"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string `json:"phone,omitempty" validate:"omitempty,phone"`
	Address          *string `json:"address,omitempty"`
	Pincode          *string `json:"pincode,omitempty"`
	District         *string `json:"district,omitempty"`
	State            *string `json:"state,omitempty"`
	PermitHolderType *string `json:"permit_holder_type,omitempty"`
}
