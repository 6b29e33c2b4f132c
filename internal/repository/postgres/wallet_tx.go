package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ibndev/citystaff-backend/internal/domain"
)

func balanceTable(owner domain.OwnerType) string {
	if owner == domain.OwnerTypeProvider {
		return "providers"
	}
	return "users"
}

// applyWalletEntry adjusts the owner's denormalized balance and appends the
// matching ledger row inside the caller's transaction. The balance row is
// locked for the duration so balance_before/balance_after stay consistent
// under concurrency. Debits that would push the balance negative return
// domain.ErrInsufficientBalance without writing anything.
func applyWalletEntry(ctx context.Context, tx *sql.Tx, owner domain.OwnerType, ownerID string,
	dir domain.EntryDirection, reason domain.EntryReason, amountCents int64, description, reference string) (int64, error) {

	table := balanceTable(owner)

	var before int64
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT wallet_balance_cents FROM %s WHERE id = $1 FOR UPDATE`, table),
		ownerID).Scan(&before)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}

	after := before + amountCents
	if dir == domain.DirectionDebit {
		after = before - amountCents
		if after < 0 {
			return 0, domain.ErrInsufficientBalance
		}
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET wallet_balance_cents = $1, updated_at = $2 WHERE id = $3`, table),
		after, time.Now(), ownerID); err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (id, owner_type, owner_id, direction, reason, amount_cents, balance_before_cents, balance_after_cents, description, reference, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.NewString(), owner, ownerID, dir, reason, amountCents, before, after, description, reference, time.Now()); err != nil {
		return 0, err
	}

	return after, nil
}
