// AngelaMos | 2026
// provider.go

package user

import (
	"context"
	"errors"

	"github.com/smarttaxi/user-service/internal/auth"
)

// CredentialStore exposes the user repository to the auth package.
type CredentialStore struct {
	repo Repository
}

func NewCredentialStore(repo Repository) *CredentialStore {
	return &CredentialStore{repo: repo}
}

func (c *CredentialStore) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := c.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (c *CredentialStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return c.repo.ExistsByEmail(ctx, normalizeEmail(email))
}

func (c *CredentialStore) LicenseExists(ctx context.Context, licenseNumber string) (bool, error) {
	return c.repo.ExistsByLicense(ctx, licenseNumber)
}

func (c *CredentialStore) Create(
	ctx context.Context,
	nu auth.NewUser,
) (*auth.UserInfo, error) {
	user := &User{
		Email:         normalizeEmail(nu.Email),
		PasswordHash:  nu.PasswordHash,
		FirstName:     nu.FirstName,
		LastName:      nu.LastName,
		PhoneNumber:   optional(nu.PhoneNumber),
		Address:       optional(nu.Address),
		City:          optional(nu.City),
		Region:        optional(nu.Region),
		LicenseNumber: optional(nu.LicenseNumber),
		Roles:         []string{RoleUser},
	}

	if err := c.repo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			return nil, auth.ErrEmailExists
		case errors.Is(err, ErrLicenseTaken):
			return nil, auth.ErrLicenseExists
		}
		return nil, err
	}

	return toUserInfo(user), nil
}

func (c *CredentialStore) UpdatePassword(
	ctx context.Context,
	userID int64,
	passwordHash string,
) error {
	return c.repo.UpdatePassword(ctx, userID, passwordHash)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Roles:        u.Roles,
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
	}
}

var _ auth.UserProvider = (*CredentialStore)(nil)
