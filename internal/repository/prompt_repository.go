package repository // repository defines data access for prompts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/table-prompt-service/internal/model"
)

// ErrPromptNotFound is returned when a prompt lookup yields no rows.
var ErrPromptNotFound = errors.New("prompt not found")

// PromptRepo provides methods to work with prompts in the database.
type PromptRepo struct {
	db *sql.DB
}

// NewPromptRepo constructs a PromptRepo with the given DB handle.
func NewPromptRepo(db *sql.DB) *PromptRepo {
	return &PromptRepo{db: db}
}

// Create inserts a prompt. authorTableID carries the author's own table
// when the author is a table admin; in that case the prompt is pinned to
// that table no matter what target the request asked for. User admins
// and super admins pass nil and keep the requested target.
func (r *PromptRepo) Create(ctx context.Context, p *model.Prompt, authorTableID *uint64) error {
	if authorTableID != nil {
		p.TableID = authorTableID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO prompts (text, table_id, is_active) VALUES (?, ?, ?)`,
		p.Text, p.TableID, p.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// List retrieves all prompts, newest first. Pass activeOnly to filter
// out soft-disabled prompts.
func (r *PromptRepo) List(ctx context.Context, activeOnly bool) ([]model.Prompt, error) {
	q := `SELECT id, text, table_id, is_active, created_at FROM prompts`
	if activeOnly {
		q += ` WHERE is_active = TRUE`
	}
	q += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Prompt
	for rows.Next() {
		var p model.Prompt
		if err := rows.Scan(&p.ID, &p.Text, &p.TableID, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// GetByID retrieves a prompt by its id.
func (r *PromptRepo) GetByID(ctx context.Context, id uint64) (*model.Prompt, error) {
	const q = `SELECT id, text, table_id, is_active, created_at FROM prompts WHERE id = ?`
	var p model.Prompt
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&p.ID, &p.Text, &p.TableID, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromptNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update rewrites the prompt text and target. Table-admin pinning is
// enforced the same way as in Create.
func (r *PromptRepo) Update(ctx context.Context, p *model.Prompt, authorTableID *uint64) error {
	if authorTableID != nil {
		p.TableID = authorTableID
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE prompts SET text = ?, table_id = ? WHERE id = ?`,
		p.Text, p.TableID, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromptNotFound
	}
	return nil
}

// SetActive soft-enables or soft-disables a prompt.
func (r *PromptRepo) SetActive(ctx context.Context, id uint64, isActive bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE prompts SET is_active = ? WHERE id = ?`, isActive, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromptNotFound
	}
	return nil
}
