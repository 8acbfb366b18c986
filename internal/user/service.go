// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/smarttaxi/user-service/internal/core"
	"github.com/smarttaxi/user-service/internal/events"
	"github.com/smarttaxi/user-service/internal/middleware"
)

var ErrSelfLockout = fmt.Errorf("administrators cannot lock themselves out: %w", core.ErrForbidden)

type Service struct {
	repo      Repository
	publisher events.Publisher
}

func NewService(repo Repository, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{repo: repo, publisher: publisher}
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

func (s *Service) GetMe(
	ctx context.Context,
	identity middleware.Identity,
) (*User, error) {
	if identity.UserID == 0 {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, identity.UserID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	identity middleware.Identity,
	req UpdateProfileRequest,
) (*User, error) {
	if identity.UserID == 0 {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.UpdateUser(ctx, identity.UserID, req)
}

func (s *Service) UpdateUser(
	ctx context.Context,
	id int64,
	req UpdateProfileRequest,
) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := applyProfile(user, req); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.emit(ctx, events.UserUpdated, user, nil)
	return user, nil
}

func (s *Service) AddRole(ctx context.Context, id int64, role string) (*User, error) {
	role, err := parseRole(role)
	if err != nil {
		return nil, fmt.Errorf("add role: %w", err)
	}

	if err := s.repo.AddRole(ctx, id, role); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.UserRoleAdded, user, map[string]any{"role": role})
	return user, nil
}

func (s *Service) RemoveRole(
	ctx context.Context,
	actor middleware.Identity,
	id int64,
	role string,
) (*User, error) {
	role, err := parseRole(role)
	if err != nil {
		return nil, fmt.Errorf("remove role: %w", err)
	}

	if role == RoleAdmin && actor.Owns(id) {
		return nil, fmt.Errorf("remove role: %w", ErrSelfLockout)
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	if err := s.repo.RemoveRole(ctx, id, role); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.UserRoleRemoved, user, map[string]any{"role": role})
	return user, nil
}

// VerifyUser is idempotent: verifying a verified user succeeds unchanged.
func (s *Service) VerifyUser(ctx context.Context, id int64) (*User, error) {
	if err := s.repo.SetVerified(ctx, id); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.UserVerified, user, nil)
	return user, nil
}

func (s *Service) ActivateUser(ctx context.Context, id int64) (*User, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) DeactivateUser(
	ctx context.Context,
	actor middleware.Identity,
	id int64,
) (*User, error) {
	if actor.Owns(id) {
		return nil, fmt.Errorf("deactivate user: %w", ErrSelfLockout)
	}

	return s.setActive(ctx, id, false)
}

func (s *Service) setActive(ctx context.Context, id int64, active bool) (*User, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	eventType := events.UserDeactivated
	if active {
		eventType = events.UserActivated
	}
	s.emit(ctx, eventType, user, nil)

	return user, nil
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) emit(ctx context.Context, eventType string, user *User, extra map[string]any) {
	data := map[string]any{
		"email":       user.Email,
		"roles":       user.Roles,
		"is_active":   user.IsActive,
		"is_verified": user.IsVerified,
	}
	for k, v := range extra {
		data[k] = v
	}

	slog.InfoContext(ctx, "user changed",
		"event", eventType,
		"user_id", user.ID,
	)

	events.Emit(ctx, s.publisher, events.New(
		eventType,
		strconv.FormatInt(user.ID, 10),
		data,
	))
}

// applyProfile rejects updates that would leave a required name blank.
func applyProfile(user *User, req UpdateProfileRequest) error {
	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		if name == "" {
			return fmt.Errorf("first name must not be blank: %w", core.ErrInvalidInput)
		}
		user.FirstName = name
	}
	if req.LastName != nil {
		name := strings.TrimSpace(*req.LastName)
		if name == "" {
			return fmt.Errorf("last name must not be blank: %w", core.ErrInvalidInput)
		}
		user.LastName = name
	}
	if req.Phone != nil {
		user.PhoneNumber = optional(*req.Phone)
	}
	if req.Address != nil {
		user.Address = optional(*req.Address)
	}
	if req.City != nil {
		user.City = optional(*req.City)
	}
	if req.Region != nil {
		user.Region = optional(*req.Region)
	}
	if req.LicenseNumber != nil {
		user.LicenseNumber = optional(*req.LicenseNumber)
	}
	return nil
}

func parseRole(role string) (string, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	role = strings.TrimPrefix(role, "ROLE_")
	if !IsKnownRole(role) {
		return "", fmt.Errorf("unknown role %q: %w", role, core.ErrInvalidInput)
	}
	return role, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
