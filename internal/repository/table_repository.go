package repository // repository defines data access for tables

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel definitions
	"fmt"          // fmt builds seat codes and wraps errors

	"github.com/iliyamo/table-prompt-service/internal/model"
)

// ErrTableNotFound is returned when a table lookup yields no rows.
var ErrTableNotFound = errors.New("table not found")

// TableRepo provides methods to work with tables in the database.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo constructs a TableRepo with the given DB handle.
func NewTableRepo(db *sql.DB) *TableRepo {
	return &TableRepo{db: db}
}

// seatCode returns the single-letter code for a zero-based seat index.
// With at most 12 seats per table the alphabet never runs out.
func seatCode(i int) string {
	return fmt.Sprintf("%c", 'A'+i)
}

// Create inserts a table plus its seats in one transaction. seatCount
// must be within [MinSeats, MaxSeats]; seats are coded A, B, C, ... in
// order. On success the table's ID is populated. A duplicate table
// number yields ErrConflict.
func (r *TableRepo) Create(ctx context.Context, t *model.Table, seatCount int) error {
	if seatCount < model.MinSeats || seatCount > model.MaxSeats {
		return fmt.Errorf("seat count %d out of range: %w", seatCount, ErrConflict)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tables (number, is_active) VALUES (?, ?)`, t.Number, t.IsActive)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)

	// Bulk-insert the seats in one statement, codes unique per table.
	query := `INSERT INTO seats (table_id, code, is_active) VALUES `
	args := make([]interface{}, 0, seatCount*3)
	for i := 0; i < seatCount; i++ {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, t.ID, seatCode(i), true)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return tx.Commit()
}

// List retrieves all tables ordered by number. Seats are not attached;
// use ListWithSeats when the full snapshot shape is needed.
func (r *TableRepo) List(ctx context.Context) ([]model.Table, error) {
	const q = `SELECT id, number, is_active, active_prompt_id, version, created_at, updated_at
	           FROM tables
	           ORDER BY number`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Table
	for rows.Next() {
		var t model.Table
		if err := rows.Scan(
			&t.ID, &t.Number, &t.IsActive, &t.ActivePromptID, &t.Version,
			&t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListWithSeats retrieves all tables with their seats attached, seats
// ordered by code within each table. This is the shape the snapshot
// fetcher publishes.
func (r *TableRepo) ListWithSeats(ctx context.Context) ([]model.Table, error) {
	tables, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	const q = `SELECT id, table_id, code, is_active, occupant_id, is_dealer, dealer_hands_left, version, created_at, updated_at
	           FROM seats
	           ORDER BY table_id, code`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byTable := make(map[uint64][]model.Seat, len(tables))
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(
			&s.ID, &s.TableID, &s.Code, &s.IsActive, &s.OccupantID,
			&s.IsDealer, &s.DealerHandsLeft, &s.Version, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		byTable[s.TableID] = append(byTable[s.TableID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range tables {
		tables[i].Seats = byTable[tables[i].ID]
	}
	return tables, nil
}

// GetByNumber retrieves a table by its floor number.
func (r *TableRepo) GetByNumber(ctx context.Context, number uint32) (*model.Table, error) {
	const q = `SELECT id, number, is_active, active_prompt_id, version, created_at, updated_at
	           FROM tables WHERE number = ?`
	var t model.Table
	err := r.db.QueryRowContext(ctx, q, number).
		Scan(&t.ID, &t.Number, &t.IsActive, &t.ActivePromptID, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &t, nil
}

// SetActiveCAS toggles the table status guarded by the expected version.
// The update bumps the version so a concurrent admin holding the same
// snapshot loses with ErrVersionConflict instead of silently overwriting.
func (r *TableRepo) SetActiveCAS(ctx context.Context, id uint64, isActive bool, expectedVersion uint32) error {
	const q = `UPDATE tables
	           SET is_active = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, isActive, id, expectedVersion)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// AssignPromptCAS sets (or clears, with nil) the table's active prompt,
// guarded by the expected version.
func (r *TableRepo) AssignPromptCAS(ctx context.Context, id uint64, promptID *uint64, expectedVersion uint32) error {
	const q = `UPDATE tables
	           SET active_prompt_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, promptID, id, expectedVersion)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// AssignPromptAll points every active table at the given prompt. Used
// for broadcast dispatch; versions are bumped so CAS readers notice.
func (r *TableRepo) AssignPromptAll(ctx context.Context, promptID uint64) error {
	const q = `UPDATE tables
	           SET active_prompt_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE is_active = TRUE`
	_, err := r.db.ExecContext(ctx, q, promptID)
	return err
}
