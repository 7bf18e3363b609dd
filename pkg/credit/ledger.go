// Package credit implements C2 CreditLedger (spec.md §4.2): per-user
// weekly credit pools across {Flash, Pro, Ultra}, with atomic
// consume-on-start and a refill anchored to Monday 00:00 UTC.
package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novelforge/novelforge/pkg/database"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/services"
)

// Quotas is the weekly refill target per mode (spec.md §4.2: "Initial
// pool: {flash: high, pro: medium, ultra: low} per configuration").
type Quotas struct {
	Flash int
	Pro   int
	Ultra int
}

// Ledger is the Postgres-backed CreditLedger.
type Ledger struct {
	pool   *pgxpool.Pool
	quotas Quotas
}

// New constructs a Ledger with the configured weekly quotas.
func New(client *database.Client, quotas Quotas) *Ledger {
	return &Ledger{pool: client.Pool, quotas: quotas}
}

// nextMondayUTC returns the next Monday 00:00 UTC strictly after t.
func nextMondayUTC(t time.Time) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	daysUntilMonday := (8 - int(midnight.Weekday())) % 7
	if daysUntilMonday == 0 {
		daysUntilMonday = 7
	}
	next := midnight.AddDate(0, 0, daysUntilMonday)
	// If t is already exactly a past Monday midnight, the formula above
	// still adds 7 days (correct: "following" means strictly after).
	if midnight.Weekday() == time.Monday && midnight.Equal(t) {
		return midnight.AddDate(0, 0, 7)
	}
	return next
}

// EnsureUser creates the credit pool row for userID if it does not
// already exist, seeded with the configured quotas.
func (l *Ledger) EnsureUser(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	_, err := l.pool.Exec(ctx, `
		INSERT INTO credit_pools (user_id, flash, pro, ultra, credits_reset_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, l.quotas.Flash, l.quotas.Pro, l.quotas.Ultra, now)
	if err != nil {
		return fmt.Errorf("%w: ensure user credit pool: %v", services.ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the user's pool, refilling lazily if due (spec.md §4.2
// "get(user_id) -> (credits, credits_reset_at, next_reset_at)").
func (l *Ledger) Get(ctx context.Context, userID string) (model.CreditPool, time.Time, error) {
	var pool model.CreditPool
	var nextReset time.Time
	err := l.withTx(ctx, func(tx pgx.Tx) error {
		p, err := l.refillIfDue(ctx, tx, userID)
		if err != nil {
			return err
		}
		pool = p
		nextReset = nextMondayUTC(p.CreditsResetAt)
		return nil
	})
	return pool, nextReset, err
}

// Consume atomically decrements the given mode's pool by one, refilling
// first if due, all within a single transaction holding a row lock so
// concurrent consumes cannot double-spend (spec.md §4.2, §8 "Credit
// non-negativity").
func (l *Ledger) Consume(ctx context.Context, userID string, mode model.Mode) (bool, model.CreditPool, error) {
	var after model.CreditPool
	var ok bool
	err := l.withTx(ctx, func(tx pgx.Tx) error {
		pool, err := l.refillIfDue(ctx, tx, userID)
		if err != nil {
			return err
		}
		if pool.Get(mode) <= 0 {
			after = pool
			ok = false
			return nil
		}

		column, cerr := modeColumn(mode)
		if cerr != nil {
			return cerr
		}
		query := fmt.Sprintf(`UPDATE credit_pools SET %s = %s - 1 WHERE user_id = $1 AND %s > 0
			RETURNING flash, pro, ultra, credits_reset_at`, column, column, column)
		row := tx.QueryRow(ctx, query, userID)
		if err := row.Scan(&after.Flash, &after.Pro, &after.Ultra, &after.CreditsResetAt); err != nil {
			if err == pgx.ErrNoRows {
				// Lost the race against another concurrent consume.
				ok = false
				after = pool
				return nil
			}
			return fmt.Errorf("%w: consume credit: %v", services.ErrStoreUnavailable, err)
		}
		ok = true
		return nil
	})
	return ok, after, err
}

func modeColumn(mode model.Mode) (string, error) {
	switch mode {
	case model.ModeFlash:
		return "flash", nil
	case model.ModePro:
		return "pro", nil
	case model.ModeUltra:
		return "ultra", nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", services.ErrValidation, mode)
	}
}

// refillIfDue locks the user's row, resets the pool to quotas if the
// current moment is on/after the next Monday 00:00 UTC boundary
// following credits_reset_at, and returns the (possibly refilled) pool.
// Must be called inside tx so the lock covers any subsequent write in
// the same logical operation (Consume's decrement).
func (l *Ledger) refillIfDue(ctx context.Context, tx pgx.Tx, userID string) (model.CreditPool, error) {
	var pool model.CreditPool
	row := tx.QueryRow(ctx, `SELECT flash, pro, ultra, credits_reset_at FROM credit_pools WHERE user_id = $1 FOR UPDATE`, userID)
	if err := row.Scan(&pool.Flash, &pool.Pro, &pool.Ultra, &pool.CreditsResetAt); err != nil {
		if err == pgx.ErrNoRows {
			return model.CreditPool{}, services.ErrNotFound
		}
		return model.CreditPool{}, fmt.Errorf("%w: read credit pool: %v", services.ErrStoreUnavailable, err)
	}

	now := time.Now().UTC()
	boundary := nextMondayUTC(pool.CreditsResetAt)
	if !now.Before(boundary) {
		// Walk the Monday grid forward so credits_reset_at stays
		// aligned even after a long gap since last access; the pool
		// itself only ever resets to quotas, never accumulates.
		for !now.Before(boundary) {
			boundary = boundary.AddDate(0, 0, 7)
		}
		newAnchor := boundary.AddDate(0, 0, -7)
		pool = model.CreditPool{Flash: l.quotas.Flash, Pro: l.quotas.Pro, Ultra: l.quotas.Ultra, CreditsResetAt: newAnchor}
		if _, err := tx.Exec(ctx, `UPDATE credit_pools SET flash=$2, pro=$3, ultra=$4, credits_reset_at=$5 WHERE user_id=$1`,
			userID, pool.Flash, pool.Pro, pool.Ultra, pool.CreditsResetAt); err != nil {
			return model.CreditPool{}, fmt.Errorf("%w: refill credit pool: %v", services.ErrStoreUnavailable, err)
		}
	}
	return pool, nil
}

func (l *Ledger) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", services.ErrStoreUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit tx: %v", services.ErrStoreUnavailable, err)
	}
	return nil
}
