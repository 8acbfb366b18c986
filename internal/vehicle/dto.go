// AngelaMos | 2026
// dto.go

package vehicle

import (
	"strings"
	"time"
)

type CreateVehicleRequest struct {
	LicensePlate       string     `json:"licensePlate"                 validate:"required,max=20"`
	Make               string     `json:"make"                         validate:"required,max=100"`
	Model              string     `json:"model"                        validate:"required,max=100"`
	YearOfManufacture  *int       `json:"yearOfManufacture,omitempty"  validate:"omitempty,gte=1900,lte=2100"`
	VehicleType        string     `json:"vehicleType,omitempty"        validate:"omitempty,oneof=sedan hatchback suv van pickup other"`
	Color              string     `json:"color,omitempty"              validate:"max=20"`
	Seats              *int       `json:"seats,omitempty"              validate:"omitempty,gte=1,lte=60"`
	InsuranceNumber    string     `json:"insuranceNumber,omitempty"    validate:"max=100"`
	InsuranceExpiry    *time.Time `json:"insuranceExpiry,omitempty"`
	RegistrationNumber string     `json:"registrationNumber,omitempty" validate:"max=100"`
	RegistrationExpiry *time.Time `json:"registrationExpiry,omitempty"`
}

type UpdateVehicleRequest struct {
	LicensePlate       *string    `json:"licensePlate,omitempty"       validate:"omitempty,min=1,max=20"`
	Make               *string    `json:"make,omitempty"               validate:"omitempty,min=1,max=100"`
	Model              *string    `json:"model,omitempty"              validate:"omitempty,min=1,max=100"`
	YearOfManufacture  *int       `json:"yearOfManufacture,omitempty"  validate:"omitempty,gte=1900,lte=2100"`
	VehicleType        *string    `json:"vehicleType,omitempty"        validate:"omitempty,oneof=sedan hatchback suv van pickup other"`
	Color              *string    `json:"color,omitempty"              validate:"omitempty,max=20"`
	Seats              *int       `json:"seats,omitempty"              validate:"omitempty,gte=1,lte=60"`
	InsuranceNumber    *string    `json:"insuranceNumber,omitempty"    validate:"omitempty,max=100"`
	InsuranceExpiry    *time.Time `json:"insuranceExpiry,omitempty"`
	RegistrationNumber *string    `json:"registrationNumber,omitempty" validate:"omitempty,max=100"`
	RegistrationExpiry *time.Time `json:"registrationExpiry,omitempty"`
}

type VehicleResponse struct {
	ID                  int64      `json:"id"`
	LicensePlate        string     `json:"licensePlate"`
	Make                string     `json:"make"`
	Model               string     `json:"model"`
	YearOfManufacture   *int       `json:"yearOfManufacture"`
	VehicleType         string     `json:"vehicleType"`
	Color               *string    `json:"color"`
	Seats               int        `json:"seats"`
	IsActive            bool       `json:"isActive"`
	IsVerified          bool       `json:"isVerified"`
	InsuranceNumber     *string    `json:"insuranceNumber"`
	InsuranceExpiry     *time.Time `json:"insuranceExpiry"`
	InsuranceExpired    bool       `json:"insuranceExpired"`
	RegistrationNumber  *string    `json:"registrationNumber"`
	RegistrationExpiry  *time.Time `json:"registrationExpiry"`
	RegistrationExpired bool       `json:"registrationExpired"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type ListVehiclesParams struct {
	Page        int
	PageSize    int
	Search      string
	VehicleType string
	IsActive    *bool
	IsVerified  *bool
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = 1_000_000
)

func (p *ListVehiclesParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	p.Search = strings.TrimSpace(p.Search)
	p.VehicleType = strings.ToLower(strings.TrimSpace(p.VehicleType))
}

func (p *ListVehiclesParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToVehicleResponse(v *Vehicle, now time.Time) VehicleResponse {
	return VehicleResponse{
		ID:                  v.ID,
		LicensePlate:        v.LicensePlate,
		Make:                v.Make,
		Model:               v.Model,
		YearOfManufacture:   v.YearOfManufacture,
		VehicleType:         v.VehicleType,
		Color:               v.Color,
		Seats:               v.Seats,
		IsActive:            v.IsActive,
		IsVerified:          v.IsVerified,
		InsuranceNumber:     v.InsuranceNumber,
		InsuranceExpiry:     v.InsuranceExpiry,
		InsuranceExpired:    v.InsuranceExpired(now),
		RegistrationNumber:  v.RegistrationNumber,
		RegistrationExpiry:  v.RegistrationExpiry,
		RegistrationExpired: v.RegistrationExpired(now),
		CreatedAt:           v.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
	}
}

func ToVehicleResponseList(vehicles []Vehicle, now time.Time) []VehicleResponse {
	out := make([]VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		out = append(out, ToVehicleResponse(&vehicles[i], now))
	}
	return out
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
