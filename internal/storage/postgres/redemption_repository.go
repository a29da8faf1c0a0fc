package postgres

import (
	"context"
	"fmt"

	"github.com/casaverde/rewards-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RedemptionRepository stores local receipts of ledger-accepted
// redemptions.
type RedemptionRepository struct {
	pool *pgxpool.Pool
}

func NewRedemptionRepository(pool *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

func (r *RedemptionRepository) Create(ctx context.Context, red domain.Redemption) error {
	const stmt = `
INSERT INTO redemptions (id, unit_id, agent_id, buyer_ref, ledger_ref, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt,
		red.ID,
		red.UnitID,
		red.AgentID,
		red.BuyerRef,
		red.LedgerRef,
		red.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Same attempt recorded twice; the first insert stands.
			return nil
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create redemption: %w", err)
	}
	return nil
}

func (r *RedemptionRepository) ListByAgent(ctx context.Context, agentID string, limit int) ([]domain.Redemption, error) {
	const query = `
SELECT id, unit_id, agent_id, buyer_ref, ledger_ref, created_at
FROM redemptions
WHERE agent_id = $1
ORDER BY created_at DESC
LIMIT $2`

	rows, err := r.query(ctx, query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var out []domain.Redemption
	for rows.Next() {
		var red domain.Redemption
		if err := rows.Scan(&red.ID, &red.UnitID, &red.AgentID, &red.BuyerRef, &red.LedgerRef, &red.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		out = append(out, red)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	return out, nil
}

func (r *RedemptionRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *RedemptionRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
