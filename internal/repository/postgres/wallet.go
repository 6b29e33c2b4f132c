package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

type walletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) repository.WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) Balance(ctx context.Context, owner domain.OwnerType, ownerID string) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT wallet_balance_cents FROM %s WHERE id = $1`, balanceTable(owner)),
		ownerID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, domain.ErrNotFound
	}
	return balance, err
}

func (r *walletRepository) ListEntries(ctx context.Context, owner domain.OwnerType, ownerID string, limit int32) ([]domain.WalletEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_type, owner_id, direction, reason, amount_cents, balance_before_cents, balance_after_cents,
		        COALESCE(description, ''), COALESCE(reference, ''), created_at
		 FROM wallet_transactions WHERE owner_type = $1 AND owner_id = $2 ORDER BY created_at DESC LIMIT $3`,
		owner, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WalletEntry
	for rows.Next() {
		var e domain.WalletEntry
		if err := rows.Scan(&e.ID, &e.OwnerType, &e.OwnerID, &e.Direction, &e.Reason, &e.AmountCents,
			&e.BalanceBeforeCents, &e.BalanceAfterCents, &e.Description, &e.Reference, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *walletRepository) ConfirmTopUp(ctx context.Context, userID string, amountCents int64, reference string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Gateway confirmations can be replayed; the reference makes the credit
	// land at most once.
	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM wallet_transactions WHERE reference = $1 AND reason = $2`,
		reference, domain.ReasonTopUp).Scan(&existing)
	if err == nil {
		var balance int64
		if err := tx.QueryRowContext(ctx,
			`SELECT wallet_balance_cents FROM users WHERE id = $1`, userID).Scan(&balance); err != nil {
			return 0, err
		}
		return balance, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	after, err := applyWalletEntry(ctx, tx, domain.OwnerTypeUser, userID,
		domain.DirectionCredit, domain.ReasonTopUp, amountCents, "Wallet top-up", reference)
	if err != nil {
		return 0, err
	}
	return after, tx.Commit()
}

func (r *walletRepository) RequestPayout(ctx context.Context, req *domain.PayoutRequest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = domain.PayoutRequestPending
	req.CreatedAt = time.Now()

	desc := fmt.Sprintf("Payout request %s", req.ID)
	if _, err := applyWalletEntry(ctx, tx, domain.OwnerTypeProvider, req.ProviderID,
		domain.DirectionDebit, domain.ReasonWithdrawal, req.AmountCents, desc, req.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO provider_payouts (id, provider_id, amount_cents, bank_name, bank_account_no, bank_account_name, bank_code, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.ID, req.ProviderID, req.AmountCents, req.BankName, req.BankAccountNo, req.BankAccountName, req.BankCode,
		req.Status, req.CreatedAt); err != nil {
		return err
	}

	return tx.Commit()
}
