// AngelaMos | 2026
// service.go

package vehicle

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/smarttaxi/user-service/internal/core"
	"github.com/smarttaxi/user-service/internal/events"
	"github.com/smarttaxi/user-service/internal/middleware"
	"github.com/smarttaxi/user-service/internal/user"
)

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

func (s *Service) Create(ctx context.Context, req CreateVehicleRequest) (*Vehicle, error) {
	v := &Vehicle{
		LicensePlate:       normalizePlate(req.LicensePlate),
		Make:               strings.TrimSpace(req.Make),
		Model:              strings.TrimSpace(req.Model),
		YearOfManufacture:  req.YearOfManufacture,
		VehicleType:        strings.ToLower(strings.TrimSpace(req.VehicleType)),
		Color:              optional(req.Color),
		Seats:              defaultSeats,
		InsuranceNumber:    optional(req.InsuranceNumber),
		InsuranceExpiry:    req.InsuranceExpiry,
		RegistrationNumber: optional(req.RegistrationNumber),
		RegistrationExpiry: req.RegistrationExpiry,
	}
	if v.VehicleType == "" {
		v.VehicleType = TypeSedan
	}
	if req.Seats != nil {
		v.Seats = *req.Seats
	}

	if err := validate(v); err != nil {
		return nil, fmt.Errorf("create vehicle: %w", err)
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}

	s.emit(ctx, events.VehicleCreated, v, nil)
	return v, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Vehicle, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(
	ctx context.Context,
	params ListVehiclesParams,
) ([]Vehicle, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Update(
	ctx context.Context,
	id int64,
	req UpdateVehicleRequest,
) (*Vehicle, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyUpdate(v, req)

	if err := validate(v); err != nil {
		return nil, fmt.Errorf("update vehicle: %w", err)
	}

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}

	s.emit(ctx, events.VehicleUpdated, v, nil)
	return v, nil
}

func (s *Service) Verify(ctx context.Context, id int64) (*Vehicle, error) {
	if err := s.repo.SetVerified(ctx, id); err != nil {
		return nil, err
	}

	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.VehicleVerified, v, nil)
	return v, nil
}

func (s *Service) Activate(ctx context.Context, id int64) (*Vehicle, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) Deactivate(ctx context.Context, id int64) (*Vehicle, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) setActive(ctx context.Context, id int64, active bool) (*Vehicle, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}

	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	eventType := events.VehicleDeactivated
	if active {
		eventType = events.VehicleActivated
	}
	s.emit(ctx, eventType, v, nil)

	return v, nil
}

// AssociateDriver is idempotent: linking an already linked driver succeeds.
func (s *Service) AssociateDriver(ctx context.Context, vehicleID, userID int64) error {
	v, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return err
	}

	if err := s.repo.AddDriver(ctx, vehicleID, userID); err != nil {
		return err
	}

	s.emit(ctx, events.DriverAssigned, v, map[string]any{"user_id": userID})
	return nil
}

func (s *Service) RemoveDriver(ctx context.Context, vehicleID, userID int64) error {
	v, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return err
	}

	if err := s.repo.RemoveDriver(ctx, vehicleID, userID); err != nil {
		return err
	}

	s.emit(ctx, events.DriverRemoved, v, map[string]any{"user_id": userID})
	return nil
}

func (s *Service) ListDrivers(ctx context.Context, vehicleID int64) ([]Driver, error) {
	if _, err := s.repo.GetByID(ctx, vehicleID); err != nil {
		return nil, err
	}

	return s.repo.ListDrivers(ctx, vehicleID)
}

// ListForUser returns the vehicles a user drives. Only the user or an
// administrator may ask.
func (s *Service) ListForUser(
	ctx context.Context,
	actor middleware.Identity,
	userID int64,
) ([]Vehicle, error) {
	if !actor.Owns(userID) && !actor.HasRole(user.RoleAdmin) {
		return nil, fmt.Errorf("list user vehicles: %w", core.ErrForbidden)
	}

	return s.repo.ListForUser(ctx, userID)
}

func (s *Service) emit(ctx context.Context, eventType string, v *Vehicle, extra map[string]any) {
	data := map[string]any{
		"license_plate": v.LicensePlate,
		"is_active":     v.IsActive,
		"is_verified":   v.IsVerified,
	}
	for k, val := range extra {
		data[k] = val
	}

	slog.InfoContext(ctx, "vehicle changed",
		"event", eventType,
		"vehicle_id", v.ID,
	)

	events.Emit(ctx, s.publisher, events.New(
		eventType,
		strconv.FormatInt(v.ID, 10),
		data,
	))
}

func applyUpdate(v *Vehicle, req UpdateVehicleRequest) {
	if req.LicensePlate != nil {
		v.LicensePlate = normalizePlate(*req.LicensePlate)
	}
	if req.Make != nil {
		v.Make = strings.TrimSpace(*req.Make)
	}
	if req.Model != nil {
		v.Model = strings.TrimSpace(*req.Model)
	}
	if req.YearOfManufacture != nil {
		v.YearOfManufacture = req.YearOfManufacture
	}
	if req.VehicleType != nil {
		v.VehicleType = strings.ToLower(strings.TrimSpace(*req.VehicleType))
	}
	if req.Color != nil {
		v.Color = optional(*req.Color)
	}
	if req.Seats != nil {
		v.Seats = *req.Seats
	}
	if req.InsuranceNumber != nil {
		v.InsuranceNumber = optional(*req.InsuranceNumber)
	}
	if req.InsuranceExpiry != nil {
		v.InsuranceExpiry = req.InsuranceExpiry
	}
	if req.RegistrationNumber != nil {
		v.RegistrationNumber = optional(*req.RegistrationNumber)
	}
	if req.RegistrationExpiry != nil {
		v.RegistrationExpiry = req.RegistrationExpiry
	}
}

func validate(v *Vehicle) error {
	if v.LicensePlate == "" || v.Make == "" || v.Model == "" {
		return fmt.Errorf("license plate, make and model are required: %w", core.ErrInvalidInput)
	}
	if !IsKnownType(v.VehicleType) {
		return fmt.Errorf("unknown vehicle type %q: %w", v.VehicleType, core.ErrInvalidInput)
	}
	if v.Seats < 1 {
		return fmt.Errorf("seats must be positive: %w", core.ErrInvalidInput)
	}
	return nil
}
