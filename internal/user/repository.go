// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/smarttaxi/user-service/internal/core"
)

const (
	constraintEmail   = "users_email_key"
	constraintLicense = "users_license_number_key"
)

var (
	ErrEmailTaken   = fmt.Errorf("email already in use: %w", core.ErrDuplicateKey)
	ErrLicenseTaken = fmt.Errorf("license number already in use: %w", core.ErrDuplicateKey)
	ErrLastRole     = fmt.Errorf("a user must keep at least one role: %w", core.ErrInvalidInput)
)

const userColumns = `id, email, password_hash, first_name, last_name,
		       phone_number, address, city, region, license_number,
		       is_active, is_verified, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetVerified(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	AddRole(ctx context.Context, id int64, role string) error
	RemoveRole(ctx context.Context, id int64, role string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByLicense(ctx context.Context, licenseNumber string) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create inserts the user and its roles in one transaction. Unique
// violations surface as ErrEmailTaken or ErrLicenseTaken.
func (r *repository) Create(ctx context.Context, user *User) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO users (email, password_hash, first_name, last_name,
			                   phone_number, address, city, region, license_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, is_active, is_verified, created_at, updated_at`

		err := tx.QueryRowxContext(ctx, query,
			user.Email,
			user.PasswordHash,
			user.FirstName,
			user.LastName,
			user.PhoneNumber,
			user.Address,
			user.City,
			user.Region,
			user.LicenseNumber,
		).Scan(
			&user.ID,
			&user.IsActive,
			&user.IsVerified,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return mapWriteError("create user", err)
		}

		for _, role := range user.Roles {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`,
				user.ID, role,
			); err != nil {
				return fmt.Errorf("create user role: %w", err)
			}
		}

		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := r.loadRoles(ctx, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := r.loadRoles(ctx, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *repository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, phone_number = $4, address = $5,
		    city = $6, region = $7, license_number = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.PhoneNumber,
		user.Address,
		user.City,
		user.Region,
		user.LicenseNumber,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return mapWriteError("update user", err)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id int64,
	passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

func (r *repository) SetVerified(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET is_verified = TRUE, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "verify user", query, id)
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `
		UPDATE users
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "set user active", query, id, active)
}

func (r *repository) AddRole(ctx context.Context, id int64, role string) error {
	query := `
		INSERT INTO user_roles (user_id, role)
		SELECT id, $2 FROM users WHERE id = $1
		ON CONFLICT (user_id, role) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, id, role); err != nil {
		return fmt.Errorf("add role: %w", err)
	}

	return nil
}

// RemoveRole locks the user's role rows so two concurrent removals cannot
// leave the user with an empty role set.
func (r *repository) RemoveRole(ctx context.Context, id int64, role string) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var roles []string
		err := tx.SelectContext(ctx, &roles,
			`SELECT role FROM user_roles WHERE user_id = $1 FOR UPDATE`,
			id,
		)
		if err != nil {
			return fmt.Errorf("lock roles: %w", err)
		}

		if !slices.Contains(roles, role) {
			return nil
		}
		if len(roles) == 1 {
			return ErrLastRole
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM user_roles WHERE user_id = $1 AND role = $2`,
			id, role,
		); err != nil {
			return fmt.Errorf("remove role: %w", err)
		}

		return nil
	})
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, "TRUE")

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			`(first_name ILIKE $%d OR last_name ILIKE $%d
			  OR email ILIKE $%d OR license_number ILIKE $%d)`,
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.City != "" {
		conditions = append(conditions, fmt.Sprintf("city ILIKE $%d", argIdx))
		args = append(args, "%"+escapeLike(params.City)+"%")
		argIdx++
	}

	if params.Region != "" {
		conditions = append(conditions, fmt.Sprintf("region ILIKE $%d", argIdx))
		args = append(args, "%"+escapeLike(params.Region)+"%")
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

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM user_roles ur
			         WHERE ur.user_id = users.id AND ur.role = $%d)`, argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM users WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	if err := r.loadRolesBulk(ctx, users); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func (r *repository) ExistsByLicense(
	ctx context.Context,
	licenseNumber string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE license_number = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, licenseNumber); err != nil {
		return false, fmt.Errorf("check license exists: %w", err)
	}

	return exists, nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE is_active) AS active,
		       COUNT(*) FILTER (WHERE is_verified) AS verified,
		       COUNT(*) FILTER (WHERE is_active AND is_verified) AS eligible
		FROM users`

	var stats Stats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}

	var rows []struct {
		Role  string `db:"role"`
		Count int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT role, COUNT(*) AS count FROM user_roles GROUP BY role`,
	); err != nil {
		return nil, fmt.Errorf("role stats: %w", err)
	}

	stats.ByRole = make(map[string]int, len(rows))
	for _, row := range rows {
		stats.ByRole[row.Role] = row.Count
	}

	return &stats, nil
}

func (r *repository) loadRoles(ctx context.Context, user *User) error {
	query := `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`

	roles := []string{}
	if err := r.db.SelectContext(ctx, &roles, query, user.ID); err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	user.Roles = roles

	return nil
}

type userRole struct {
	UserID int64  `db:"user_id"`
	Role   string `db:"role"`
}

func (r *repository) loadRolesBulk(ctx context.Context, users []User) error {
	if len(users) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(users))
	index := make(map[int64]int, len(users))
	for i := range users {
		ids = append(ids, users[i].ID)
		index[users[i].ID] = i
		users[i].Roles = []string{}
	}

	query, args, err := sqlx.In(
		`SELECT user_id, role FROM user_roles WHERE user_id IN (?) ORDER BY role`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("build roles query: %w", err)
	}

	var rows []userRole
	if err := r.db.SelectContext(ctx, &rows, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return fmt.Errorf("load roles: %w", err)
	}

	for _, row := range rows {
		if i, ok := index[row.UserID]; ok {
			users[i].Roles = append(users[i].Roles, row.Role)
		}
	}

	return nil
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

	switch constraint {
	case constraintEmail:
		return fmt.Errorf("%s: %w", op, ErrEmailTaken)
	case constraintLicense:
		return fmt.Errorf("%s: %w", op, ErrLicenseTaken)
	default:
		return fmt.Errorf("%s: %w", op, core.ErrDuplicateKey)
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
