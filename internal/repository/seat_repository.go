package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel definitions

	"github.com/iliyamo/table-prompt-service/internal/model"
)

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// ErrSeatVacant is returned when a dealer flag is requested for a seat
// that has no occupant. A seat with no occupant must never be dealer.
var ErrSeatVacant = errors.New("seat has no occupant")

// SeatRepo provides methods to work with seats in the database.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// GetByTable retrieves all seats of a table ordered by code.
func (r *SeatRepo) GetByTable(ctx context.Context, tableID uint64) ([]model.Seat, error) {
	const q = `SELECT id, table_id, code, is_active, occupant_id, is_dealer, dealer_hands_left, version, created_at, updated_at
	           FROM seats
	           WHERE table_id = ?
	           ORDER BY code`
	rows, err := r.db.QueryContext(ctx, q, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(
			&s.ID, &s.TableID, &s.Code, &s.IsActive, &s.OccupantID,
			&s.IsDealer, &s.DealerHandsLeft, &s.Version, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID retrieves a seat by its id.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	const q = `SELECT id, table_id, code, is_active, occupant_id, is_dealer, dealer_hands_left, version, created_at, updated_at
	           FROM seats WHERE id = ?`
	var s model.Seat
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&s.ID, &s.TableID, &s.Code, &s.IsActive, &s.OccupantID,
			&s.IsDealer, &s.DealerHandsLeft, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetByTableAndCode retrieves a seat by table number and seat code.
// Used by guest login, which knows the floor number rather than ids.
func (r *SeatRepo) GetByTableAndCode(ctx context.Context, tableNumber uint32, code string) (*model.Seat, error) {
	const q = `SELECT s.id, s.table_id, s.code, s.is_active, s.occupant_id, s.is_dealer, s.dealer_hands_left, s.version, s.created_at, s.updated_at
	           FROM seats s
	           JOIN tables t ON t.id = s.table_id
	           WHERE t.number = ? AND s.code = ?`
	var s model.Seat
	err := r.db.QueryRowContext(ctx, q, tableNumber, code).
		Scan(&s.ID, &s.TableID, &s.Code, &s.IsActive, &s.OccupantID,
			&s.IsDealer, &s.DealerHandsLeft, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SetActiveCAS toggles the seat status guarded by the expected version.
// The occupant reference is deliberately untouched: disabling a seat
// must not evict whoever sits there.
func (r *SeatRepo) SetActiveCAS(ctx context.Context, id uint64, isActive bool, expectedVersion uint32) error {
	const q = `UPDATE seats
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

// SetOccupant sets or clears (with nil) the seat's occupant. Clearing
// the occupant also clears the dealer flag, since a vacant seat can
// never be dealer.
func (r *SeatRepo) SetOccupant(ctx context.Context, id uint64, occupantID *uint64) error {
	const q = `UPDATE seats
	           SET occupant_id = ?,
	               is_dealer = IF(? IS NULL, FALSE, is_dealer),
	               dealer_hands_left = IF(? IS NULL, NULL, dealer_hands_left),
	               version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, occupantID, occupantID, occupantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSeatNotFound
	}
	return nil
}

// SetDealerCAS marks or unmarks the seat as dealer, optionally with a
// remaining-hands counter, guarded by the expected version. Marking a
// vacant seat as dealer fails with ErrSeatVacant.
func (r *SeatRepo) SetDealerCAS(ctx context.Context, id uint64, isDealer bool, handsLeft *uint32, expectedVersion uint32) error {
	if isDealer {
		seat, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !seat.Occupied() {
			return ErrSeatVacant
		}
	}
	const q = `UPDATE seats
	           SET is_dealer = ?, dealer_hands_left = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, isDealer, handsLeft, id, expectedVersion)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}
