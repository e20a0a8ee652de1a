package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/newdaybreak/careers/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, phone, role, password_hash, created_at`

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO users (name, email, phone, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.Phone,
		user.Role,
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	return user, nil
}

// CreateAdminIfMissing inserts user as an admin unless an admin already exists.
// The check and the insert are a single statement. It reports whether a row
// was written.
func (r *UserRepository) CreateAdminIfMissing(ctx context.Context, user types.User) (types.User, bool, error) {
	user.Role = types.RoleAdmin
	user.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO users (name, email, phone, role, password_hash, created_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE NOT EXISTS (SELECT 1 FROM users WHERE role = $4)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.Phone,
		user.Role,
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, false, nil
		}
		if isUniqueViolation(err) {
			return types.User{}, false, ErrConflict
		}
		return types.User{}, false, err
	}
	return user, true, nil
}

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	var phone sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&phone,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if phone.Valid {
		user.Phone = &phone.String
	}
	return user, nil
}
