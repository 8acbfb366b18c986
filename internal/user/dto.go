// AngelaMos | 2026
// dto.go

package user

import (
	"strings"
	"time"
)

// UpdateProfileRequest is a partial update: nil fields are left alone and
// an empty optional field is cleared.
type UpdateProfileRequest struct {
	FirstName     *string `json:"firstName,omitempty"     validate:"omitempty,notblank,max=100"`
	LastName      *string `json:"lastName,omitempty"      validate:"omitempty,notblank,max=100"`
	Phone         *string `json:"phone,omitempty"         validate:"omitempty,max=20"`
	Address       *string `json:"address,omitempty"       validate:"omitempty,max=200"`
	City          *string `json:"city,omitempty"          validate:"omitempty,max=100"`
	Region        *string `json:"region,omitempty"        validate:"omitempty,max=100"`
	LicenseNumber *string `json:"licenseNumber,omitempty" validate:"omitempty,max=50"`
}

type UserResponse struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	PhoneNumber   *string   `json:"phoneNumber"`
	Address       *string   `json:"address"`
	City          *string   `json:"city"`
	Region        *string   `json:"region"`
	LicenseNumber *string   `json:"licenseNumber"`
	Roles         []string  `json:"roles"`
	IsActive      bool      `json:"isActive"`
	IsVerified    bool      `json:"isVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type ListUsersParams struct {
	Page       int
	PageSize   int
	Search     string
	City       string
	Region     string
	Role       string
	IsActive   *bool
	IsVerified *bool
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = 1_000_000
)

func (p *ListUsersParams) Normalize() {
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
	p.City = strings.TrimSpace(p.City)
	p.Region = strings.TrimSpace(p.Region)
	p.Role = strings.ToUpper(strings.TrimSpace(p.Role))
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}

	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		PhoneNumber:   u.PhoneNumber,
		Address:       u.Address,
		City:          u.City,
		Region:        u.Region,
		LicenseNumber: u.LicenseNumber,
		Roles:         roles,
		IsActive:      u.IsActive,
		IsVerified:    u.IsVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}

// optional maps blank input to NULL.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
