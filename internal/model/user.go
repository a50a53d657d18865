package model

import "time"

// Role constants for user authorization.
const (
	RoleFree    = "freeUser"
	RolePremium = "Premium"
	RoleAdmin   = "admin"
)

// ValidRoles lists every role an admin may assign.
var ValidRoles = []string{RoleFree, RolePremium, RoleAdmin}

// Payment status values. A freshly registered user has no status at all;
// readers treat the empty value as PaymentUnpaid.
const (
	PaymentUnpaid = "Unpaid"
	PaymentPaid   = "Paid"
)

// User represents a registered account.
//
// Email is the natural key: identity tokens resolve to an email, lessons
// reference their author by email, and upserts match on email. ID is whatever
// the store generated and is never used for lookups.
type User struct {
	ID            string    `json:"_id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	PhotoURL      string    `json:"photoURL,omitempty"`
	Role          string    `json:"role"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	LastLoggedIn  time.Time `json:"last_loggedIn"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// RoleStatus is the public view served by GET /users/role/{email}.
type RoleStatus struct {
	Role          string `json:"role"`
	PaymentStatus string `json:"paymentStatus"`
}
