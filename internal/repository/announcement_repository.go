package repository // repository defines data access for announcements

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/table-prompt-service/internal/model"
)

// AnnouncementRepo provides methods to work with announcements.
// Announcements are append-only: no update or delete is modeled.
// The target list is stored as a JSON array in a text column; a NULL
// column means the announcement goes to every table.
type AnnouncementRepo struct {
	db *sql.DB
}

// NewAnnouncementRepo constructs an AnnouncementRepo with the given DB handle.
func NewAnnouncementRepo(db *sql.DB) *AnnouncementRepo {
	return &AnnouncementRepo{db: db}
}

// Create inserts an announcement. On success its ID is populated.
func (r *AnnouncementRepo) Create(ctx context.Context, a *model.Announcement) error {
	var targets interface{} // NULL = broadcast
	if a.TableNumbers != nil {
		b, err := json.Marshal(a.TableNumbers)
		if err != nil {
			return fmt.Errorf("marshal targets: %w", err)
		}
		targets = string(b)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO announcements (text, table_numbers) VALUES (?, ?)`,
		a.Text, targets)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// List retrieves all announcements, newest first.
func (r *AnnouncementRepo) List(ctx context.Context) ([]model.Announcement, error) {
	const q = `SELECT id, text, table_numbers, created_at
	           FROM announcements
	           ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Announcement
	for rows.Next() {
		var (
			a       model.Announcement
			targets sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Text, &targets, &a.CreatedAt); err != nil {
			return nil, err
		}
		if targets.Valid {
			if err := json.Unmarshal([]byte(targets.String), &a.TableNumbers); err != nil {
				return nil, fmt.Errorf("unmarshal targets for announcement %d: %w", a.ID, err)
			}
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
