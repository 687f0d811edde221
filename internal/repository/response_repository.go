package repository // repository defines data access for guest responses

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/table-prompt-service/internal/model"
)

// ErrResponseNotFound is returned when a response lookup yields no rows.
var ErrResponseNotFound = errors.New("response not found")

// ResponseRepo provides methods to work with responses. Rows are
// immutable after insert; the only write besides Create is Delete,
// reserved for admins.
type ResponseRepo struct {
	db *sql.DB
}

// NewResponseRepo constructs a ResponseRepo with the given DB handle.
func NewResponseRepo(db *sql.DB) *ResponseRepo {
	return &ResponseRepo{db: db}
}

// Create inserts a response. On success the response's ID is populated.
func (r *ResponseRepo) Create(ctx context.Context, resp *model.Response) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO responses (prompt_id, user_id, table_number, seat_code, answer) VALUES (?, ?, ?, ?, ?)`,
		resp.PromptID, resp.UserID, resp.TableNumber, resp.SeatCode, resp.Answer)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	resp.ID = uint64(id)
	return nil
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	PromptID    uint64
	TableNumber uint32
}

// List retrieves responses newest first, optionally filtered by prompt
// and/or table.
func (r *ResponseRepo) List(ctx context.Context, f ListFilter) ([]model.Response, error) {
	q := `SELECT id, prompt_id, user_id, table_number, seat_code, answer, created_at
	      FROM responses WHERE 1=1`
	var args []interface{}
	if f.PromptID != 0 {
		q += ` AND prompt_id = ?`
		args = append(args, f.PromptID)
	}
	if f.TableNumber != 0 {
		q += ` AND table_number = ?`
		args = append(args, f.TableNumber)
	}
	q += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Response
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(&resp.ID, &resp.PromptID, &resp.UserID,
			&resp.TableNumber, &resp.SeatCode, &resp.Answer, &resp.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, resp)
	}
	return result, rows.Err()
}

// Delete removes a response. Responses are otherwise immutable.
func (r *ResponseRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM responses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResponseNotFound
	}
	return nil
}
