// AngelaMos | 2026
// entity.go

package vehicle

import (
	"slices"
	"time"
)

const (
	TypeSedan     = "sedan"
	TypeHatchback = "hatchback"
	TypeSUV       = "suv"
	TypeVan       = "van"
	TypePickup    = "pickup"
	TypeOther     = "other"
)

var KnownTypes = []string{TypeSedan, TypeHatchback, TypeSUV, TypeVan, TypePickup, TypeOther}

func IsKnownType(t string) bool {
	return slices.Contains(KnownTypes, t)
}

const defaultSeats = 4

type Vehicle struct {
	ID                 int64      `db:"id"`
	LicensePlate       string     `db:"license_plate"`
	Make               string     `db:"make"`
	Model              string     `db:"model"`
	YearOfManufacture  *int       `db:"year_of_manufacture"`
	VehicleType        string     `db:"vehicle_type"`
	Color              *string    `db:"color"`
	Seats              int        `db:"seats"`
	IsActive           bool       `db:"is_active"`
	IsVerified         bool       `db:"is_verified"`
	InsuranceNumber    *string    `db:"insurance_number"`
	InsuranceExpiry    *time.Time `db:"insurance_expiry"`
	RegistrationNumber *string    `db:"registration_number"`
	RegistrationExpiry *time.Time `db:"registration_expiry"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// InsuranceExpired is true when no expiry is on file or it has passed.
func (v *Vehicle) InsuranceExpired(now time.Time) bool {
	return expired(v.InsuranceExpiry, now)
}

func (v *Vehicle) RegistrationExpired(now time.Time) bool {
	return expired(v.RegistrationExpiry, now)
}

func expired(expiry *time.Time, now time.Time) bool {
	return expiry == nil || expiry.Before(now)
}

// Driver is the slice of a user account shown alongside a vehicle.
type Driver struct {
	ID         int64  `db:"id"         json:"id"`
	Email      string `db:"email"      json:"email"`
	FirstName  string `db:"first_name" json:"firstName"`
	LastName   string `db:"last_name"  json:"lastName"`
	IsActive   bool   `db:"is_active"  json:"isActive"`
	IsVerified bool   `db:"is_verified" json:"isVerified"`
}
