// AngelaMos | 2026
// entity.go

package user

import (
	"slices"
	"time"
)

const (
	RoleUser      = "USER"
	RoleAdmin     = "ADMIN"
	RoleDriver    = "DRIVER"
	RoleModerator = "MODERATOR"
)

var KnownRoles = []string{RoleUser, RoleAdmin, RoleDriver, RoleModerator}

func IsKnownRole(role string) bool {
	return slices.Contains(KnownRoles, role)
}

type User struct {
	ID            int64     `db:"id"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	PhoneNumber   *string   `db:"phone_number"`
	Address       *string   `db:"address"`
	City          *string   `db:"city"`
	Region        *string   `db:"region"`
	LicenseNumber *string   `db:"license_number"`
	IsActive      bool      `db:"is_active"`
	IsVerified    bool      `db:"is_verified"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`

	Roles []string `db:"-"`
}

// Stats summarizes the account base for operators.
type Stats struct {
	Total    int            `db:"total"    json:"total"`
	Active   int            `db:"active"   json:"active"`
	Verified int            `db:"verified" json:"verified"`
	Eligible int            `db:"eligible" json:"eligible"`
	ByRole   map[string]int `db:"-"        json:"byRole"`
}
