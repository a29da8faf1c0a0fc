package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/casaverde/rewards-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AllocationRepository persists unit-allocation slots. Every mutation is
// a conditional update keyed on current lease ownership; the row's
// atomicity is the only synchronization primitive.
type AllocationRepository struct {
	pool *pgxpool.Pool
}

func NewAllocationRepository(pool *pgxpool.Pool) *AllocationRepository {
	return &AllocationRepository{pool: pool}
}

const allocationColumns = `
id, catalogue_id, unit_label, max_stock, remaining_stock, released_status,
reserved_by, reserved_at, reserved_ler_code, reservation_expires_at,
synced_at, created_at, updated_at`

func (r *AllocationRepository) Get(ctx context.Context, unitID string) (domain.UnitAllocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM unit_allocations WHERE id = $1`

	a, err := r.scanAllocation(r.queryRow(ctx, query, unitID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.UnitAllocation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.UnitAllocation{}, domain.ErrUnitNotFound
		}
		return domain.UnitAllocation{}, fmt.Errorf("get allocation: %w", err)
	}
	return a, nil
}

// Claim attempts the conditional lease grant: it succeeds when the slot
// is unleased, its lease has expired, or the live lease already belongs
// to agentID (a re-entrant claim after a payment redirect). On conflict
// the holder is read back inside the same transaction so the caller
// gets a consistent pre-image.
func (r *AllocationRepository) Claim(ctx context.Context, unitID, agentID, buyerRef string, now, expiresAt time.Time) (claimed bool, heldBy string, err error) {
	const stmt = `
UPDATE unit_allocations
SET reserved_by = $2,
    reserved_at = $3,
    reserved_ler_code = $4,
    reservation_expires_at = $5,
    updated_at = $3
WHERE id = $1
  AND (reserved_by IS NULL
       OR reserved_by = $2
       OR (reservation_expires_at IS NOT NULL AND reservation_expires_at <= $3))`

	err = withTx(ctx, r.pool, func(txCtx context.Context) error {
		tag, execErr := r.exec(txCtx, stmt, unitID, agentID, now, buyerRef, expiresAt)
		if execErr != nil {
			if isInvalidUUID(execErr) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("claim allocation: %w", execErr)
		}
		if tag.RowsAffected() > 0 {
			claimed = true
			return nil
		}

		var holder *string
		scanErr := r.queryRow(txCtx, `SELECT reserved_by FROM unit_allocations WHERE id = $1`, unitID).Scan(&holder)
		if scanErr != nil {
			if scanErr == pgx.ErrNoRows {
				return domain.ErrUnitNotFound
			}
			return fmt.Errorf("read claim holder: %w", scanErr)
		}
		if holder != nil {
			heldBy = *holder
		}
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return claimed, heldBy, nil
}

// Release clears the lease only while agentID still holds it. Clearing
// an absent or foreign lease affects zero rows and is not an error.
func (r *AllocationRepository) Release(ctx context.Context, unitID, agentID string, now time.Time) error {
	const stmt = `
UPDATE unit_allocations
SET reserved_by = NULL,
    reserved_at = NULL,
    reserved_ler_code = NULL,
    reservation_expires_at = NULL,
    updated_at = $3
WHERE id = $1 AND reserved_by = $2`

	if _, err := r.exec(ctx, stmt, unitID, agentID, now); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("release allocation: %w", err)
	}
	return nil
}

// Finalize converts agentID's lease into a stock decrement, floored at
// zero, recomputing the display status and clearing the lease in the
// same statement. It reports whether the gated update applied; a stale
// or foreign caller affects zero rows.
func (r *AllocationRepository) Finalize(ctx context.Context, unitID, agentID string, now time.Time) (bool, error) {
	const stmt = `
UPDATE unit_allocations
SET remaining_stock = GREATEST(remaining_stock - 1, 0),
    released_status = CASE WHEN remaining_stock - 1 > 0 THEN 'Available' ELSE 'Not Released' END,
    reserved_by = NULL,
    reserved_at = NULL,
    reserved_ler_code = NULL,
    reservation_expires_at = NULL,
    synced_at = $3,
    updated_at = $3
WHERE id = $1 AND reserved_by = $2`

	tag, err := r.exec(ctx, stmt, unitID, agentID, now)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		if isCheckViolation(err) {
			return false, fmt.Errorf("finalize allocation: stock constraint: %w", err)
		}
		return false, fmt.Errorf("finalize allocation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseExpiredBefore clears leases whose expiry passed at or before
// cutoff. Correctness never depends on this; readers re-check expiry.
func (r *AllocationRepository) ReleaseExpiredBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	const stmt = `
UPDATE unit_allocations
SET reserved_by = NULL,
    reserved_at = NULL,
    reserved_ler_code = NULL,
    reservation_expires_at = NULL,
    updated_at = $2
WHERE reserved_by IS NOT NULL
  AND reservation_expires_at IS NOT NULL
  AND reservation_expires_at <= $1`

	tag, err := r.exec(ctx, stmt, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("release expired leases: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *AllocationRepository) List(ctx context.Context) ([]domain.UnitAllocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM unit_allocations ORDER BY catalogue_id, unit_label, id`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var out []domain.UnitAllocation
	for rows.Next() {
		a, err := r.scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return out, nil
}

func (r *AllocationRepository) scanAllocation(row pgx.Row) (domain.UnitAllocation, error) {
	var a domain.UnitAllocation
	var status string
	err := row.Scan(
		&a.ID,
		&a.CatalogueID,
		&a.UnitLabel,
		&a.MaxStock,
		&a.RemainingStock,
		&status,
		&a.ReservedBy,
		&a.ReservedAt,
		&a.ReservedLerCode,
		&a.ReservationExpiresAt,
		&a.SyncedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.UnitAllocation{}, err
	}
	a.ReleasedStatus = domain.ReleasedStatus(status)
	return a, nil
}

func (r *AllocationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *AllocationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *AllocationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
