// AngelaMos | 2026
// repository.go

package vehicle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/smarttaxi/user-service/internal/core"
)

const constraintPlate = "vehicles_license_plate_key"

var (
	ErrPlateTaken     = fmt.Errorf("license plate already registered: %w", core.ErrDuplicateKey)
	ErrDriverNotFound = fmt.Errorf("driver not found: %w", core.ErrNotFound)
)

const vehicleColumns = `id, license_plate, make, model, year_of_manufacture,
		       vehicle_type, color, seats, is_active, is_verified,
		       insurance_number, insurance_expiry, registration_number,
		       registration_expiry, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, v *Vehicle) error
	GetByID(ctx context.Context, id int64) (*Vehicle, error)
	Update(ctx context.Context, v *Vehicle) error
	SetVerified(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context, params ListVehiclesParams) ([]Vehicle, int, error)
	AddDriver(ctx context.Context, vehicleID, userID int64) error
	RemoveDriver(ctx context.Context, vehicleID, userID int64) error
	ListDrivers(ctx context.Context, vehicleID int64) ([]Driver, error)
	ListForUser(ctx context.Context, userID int64) ([]Vehicle, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, v *Vehicle) error {
	query := `
		INSERT INTO vehicles (license_plate, make, model, year_of_manufacture,
		                      vehicle_type, color, seats, insurance_number,
		                      insurance_expiry, registration_number, registration_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, is_active, is_verified, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		v.LicensePlate,
		v.Make,
		v.Model,
		v.YearOfManufacture,
		v.VehicleType,
		v.Color,
		v.Seats,
		v.InsuranceNumber,
		v.InsuranceExpiry,
		v.RegistrationNumber,
		v.RegistrationExpiry,
	).Scan(&v.ID, &v.IsActive, &v.IsVerified, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return mapWriteError("create vehicle", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`

	var v Vehicle
	err := r.db.GetContext(ctx, &v, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get vehicle: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle: %w", err)
	}

	return &v, nil
}

func (r *repository) Update(ctx context.Context, v *Vehicle) error {
	query := `
		UPDATE vehicles
		SET license_plate = $2, make = $3, model = $4, year_of_manufacture = $5,
		    vehicle_type = $6, color = $7, seats = $8, insurance_number = $9,
		    insurance_expiry = $10, registration_number = $11,
		    registration_expiry = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &v.UpdatedAt, query,
		v.ID,
		v.LicensePlate,
		v.Make,
		v.Model,
		v.YearOfManufacture,
		v.VehicleType,
		v.Color,
		v.Seats,
		v.InsuranceNumber,
		v.InsuranceExpiry,
		v.RegistrationNumber,
		v.RegistrationExpiry,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update vehicle: %w", core.ErrNotFound)
	}
	if err != nil {
		return mapWriteError("update vehicle", err)
	}

	return nil
}

func (r *repository) SetVerified(ctx context.Context, id int64) error {
	query := `
		UPDATE vehicles
		SET is_verified = TRUE, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "verify vehicle", query, id)
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `
		UPDATE vehicles
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "set vehicle active", query, id, active)
}

func (r *repository) List(
	ctx context.Context,
	params ListVehiclesParams,
) ([]Vehicle, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(license_plate ILIKE $%d OR make ILIKE $%d OR model ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.VehicleType != "" {
		conditions = append(conditions, fmt.Sprintf("vehicle_type = $%d", argIdx))
		args = append(args, params.VehicleType)
		argIdx++
	}

	if params.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIdx))
		args = append(args, *params.IsActive)
		argIdx++
	}

	if params.IsVerified != nil {
		conditions = append(conditions, fmt.Sprintf("is_verified = $%d", argIdx))
		args = append(args, *params.IsVerified)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM vehicles WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM vehicles
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		vehicleColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	vehicles := []Vehicle{}
	if err := r.db.SelectContext(ctx, &vehicles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}

	return vehicles, total, nil
}

// AddDriver links a user to a vehicle. Linking an already linked pair is
// a no-op; a missing user yields ErrDriverNotFound.
func (r *repository) AddDriver(ctx context.Context, vehicleID, userID int64) error {
	query := `
		INSERT INTO user_vehicles (user_id, vehicle_id)
		SELECT u.id, v.id FROM users u, vehicles v
		WHERE u.id = $1 AND v.id = $2
		ON CONFLICT (user_id, vehicle_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, userID, vehicleID)
	if err != nil {
		return fmt.Errorf("add driver: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add driver: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID,
	); err != nil {
		return fmt.Errorf("add driver: %w", err)
	}
	if !exists {
		return fmt.Errorf("add driver: %w", ErrDriverNotFound)
	}

	return nil
}

func (r *repository) RemoveDriver(ctx context.Context, vehicleID, userID int64) error {
	query := `DELETE FROM user_vehicles WHERE user_id = $1 AND vehicle_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, vehicleID); err != nil {
		return fmt.Errorf("remove driver: %w", err)
	}

	return nil
}

func (r *repository) ListDrivers(ctx context.Context, vehicleID int64) ([]Driver, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, u.is_active, u.is_verified
		FROM users u
		JOIN user_vehicles uv ON uv.user_id = u.id
		WHERE uv.vehicle_id = $1
		ORDER BY uv.created_at, u.id`

	drivers := []Driver{}
	if err := r.db.SelectContext(ctx, &drivers, query, vehicleID); err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}

	return drivers, nil
}

func (r *repository) ListForUser(ctx context.Context, userID int64) ([]Vehicle, error) {
	query := `
		SELECT ` + prefixed("v.", vehicleColumns) + `
		FROM vehicles v
		JOIN user_vehicles uv ON uv.vehicle_id = v.id
		WHERE uv.user_id = $1
		ORDER BY uv.created_at, v.id`

	vehicles := []Vehicle{}
	if err := r.db.SelectContext(ctx, &vehicles, query, userID); err != nil {
		return nil, fmt.Errorf("list user vehicles: %w", err)
	}

	return vehicles, nil
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func mapWriteError(op string, err error) error {
	constraint, ok := core.UniqueViolation(err)
	if !ok {
		return fmt.Errorf("%s: %w", op, err)
	}

	if constraint == constraintPlate {
		return fmt.Errorf("%s: %w", op, ErrPlateTaken)
	}
	return fmt.Errorf("%s: %w", op, core.ErrDuplicateKey)
}

// prefixed qualifies a comma separated column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
