package fetcher

import (
	"context"

	"github.com/iliyamo/table-prompt-service/internal/model"
	"github.com/iliyamo/table-prompt-service/internal/repository"
)

// SQLBackend adapts the repository layer to the Backend read surface.
// Row normalization (snake_case columns, nullable foreign keys into
// optional references) happens in the repositories' scans; this adapter
// only chooses which reads make up a snapshot.
type SQLBackend struct {
	tables  *repository.TableRepo
	seats   *repository.SeatRepo
	prompts *repository.PromptRepo
	anns    *repository.AnnouncementRepo
}

// Compile-time check that the adapter satisfies the read surface.
var _ Backend = (*SQLBackend)(nil)

// NewSQLBackend constructs the adapter over the given repositories.
func NewSQLBackend(tables *repository.TableRepo, seats *repository.SeatRepo, prompts *repository.PromptRepo, anns *repository.AnnouncementRepo) *SQLBackend {
	return &SQLBackend{tables: tables, seats: seats, prompts: prompts, anns: anns}
}

// Tables reads every table with its seats attached.
func (b *SQLBackend) Tables(ctx context.Context) ([]model.Table, error) {
	return b.tables.ListWithSeats(ctx)
}

// Prompts reads only active prompts; disabled prompts are invisible to
// reconciliation consumers.
func (b *SQLBackend) Prompts(ctx context.Context) ([]model.Prompt, error) {
	return b.prompts.List(ctx, true)
}

// Announcements reads all announcements.
func (b *SQLBackend) Announcements(ctx context.Context) ([]model.Announcement, error) {
	return b.anns.List(ctx)
}

// TableSeats reads the seats of one table identified by floor number.
func (b *SQLBackend) TableSeats(ctx context.Context, tableNumber uint32) ([]model.Seat, error) {
	t, err := b.tables.GetByNumber(ctx, tableNumber)
	if err != nil {
		return nil, err
	}
	return b.seats.GetByTable(ctx, t.ID)
}
