package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/utils"
)

// ErrUserNotFound is returned when a user lookup yields no rows.
var ErrUserNotFound = errors.New("user not found")

// ErrUsernameExists is returned when an admin username is already taken.
var ErrUsernameExists = errors.New("username already exists")

// UserRepo persists users. Admin accounts are durable; guest accounts
// materialize at login bound to a table and seat and are deleted when
// the seat is released.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id, name, username, password_hash, role, is_active, table_number, last_active_at, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &u.Role,
		&u.IsActive, &u.TableNumber, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateAdmin inserts a durable admin user and returns its ID. The
// password is hashed with bcrypt at the given cost.
func (r *UserRepo) CreateAdmin(ctx context.Context, name, username, password, role string, tableNumber *uint32, cost int) (uint64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, username, password_hash, role, table_number) VALUES (?,?,?,?,?)",
		name, username, hash, role, tableNumber)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateGuest inserts a transient guest user bound to a table. Guests
// have no username or password.
func (r *UserRepo) CreateGuest(ctx context.Context, name string, tableNumber uint32) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, role, table_number) VALUES (?,?,?)",
		name, model.RoleGuest, tableNumber)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE username=? LIMIT 1", username))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// ListAdmins returns every durable (non-guest) user ordered by name.
func (r *UserRepo) ListAdmins(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users WHERE role <> ? ORDER BY name", model.RoleGuest)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// Update rewrites the mutable admin fields: name, role, table binding
// and active flag. Username and password are changed elsewhere.
func (r *UserRepo) Update(ctx context.Context, id uint64, name, role string, tableNumber *uint32, isActive bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, role=?, table_number=?, is_active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		name, role, tableNumber, isActive, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user row. Admin deletion is a real delete; seats
// referencing the user as occupant are cleared first.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE seats SET occupant_id=NULL, is_dealer=FALSE, dealer_hands_left=NULL WHERE occupant_id=?", id); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// TouchLastActive stamps the user's last-active timestamp. Failures are
// the caller's to ignore; staleness here is cosmetic.
func (r *UserRepo) TouchLastActive(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_active_at=? WHERE id=?", at.UTC(), id)
	return err
}
