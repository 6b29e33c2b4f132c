package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibndev/citystaff-backend/internal/domain"
)

func newBookingMock(t *testing.T) (sqlmock.Sqlmock, func() error, *bookingRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return mock, db.Close, &bookingRepository{db: db}
}

func TestUpdateStatusIf_CAS(t *testing.T) {
	mock, closeDB, repo := newBookingMock(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE bookings SET status = \$1 WHERE id = \$2 AND status = \$3`).
		WithArgs(string(domain.BookingStatusDispatching), "bk-1", string(domain.BookingStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bookings SET status = \$1 WHERE id = \$2 AND status = \$3`).
		WithArgs(string(domain.BookingStatusDispatching), "bk-1", string(domain.BookingStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err := repo.UpdateStatusIf(context.Background(), "bk-1", domain.BookingStatusPending, domain.BookingStatusDispatching)
	require.NoError(t, err)
	assert.True(t, moved)

	// A second caller loses the race.
	moved, err = repo.UpdateStatusIf(context.Background(), "bk-1", domain.BookingStatusPending, domain.BookingStatusDispatching)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestCreateWithCapture_WalletPaymentDebitsInSameTx(t *testing.T) {
	mock, closeDB, repo := newBookingMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT wallet_balance_cents FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("usr-1").
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance_cents"}).AddRow(200000))
	mock.ExpectExec(`UPDATE users SET wallet_balance_cents = \$1`).
		WithArgs(int64(84500), sqlmock.AnyArg(), "usr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO wallet_transactions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := &domain.Booking{
		ID:              "bk-1",
		BookingRef:      "CSB10000001AAA",
		UserID:          "usr-1",
		ServiceID:       "svc-1",
		Address:         "12 Marina Road",
		TotalPriceCents: 115500,
		PaymentMethod:   domain.PaymentMethodWallet,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		Status:          domain.BookingStatusPending,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, repo.CreateWithCapture(context.Background(), b))
	assert.Equal(t, domain.PaymentStatusPaid, b.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithCapture_InsufficientBalanceWritesNothing(t *testing.T) {
	mock, closeDB, repo := newBookingMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT wallet_balance_cents FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("usr-1").
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance_cents"}).AddRow(1000))
	mock.ExpectRollback()

	b := &domain.Booking{
		ID:              "bk-1",
		UserID:          "usr-1",
		TotalPriceCents: 115500,
		PaymentMethod:   domain.PaymentMethodWallet,
		PaymentStatus:   domain.PaymentStatusUnpaid,
	}
	err := repo.CreateWithCapture(context.Background(), b)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, domain.PaymentStatusUnpaid, b.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func completedBookingRow(paymentMethod, paymentStatus string) *sqlmock.Rows {
	return sqlmock.NewRows(bookingRowColumns).AddRow(
		"bk-1", "CSB10000001AAA", "usr-1", "svc-1", "prv-1", "12 Marina Road", 6.45, 3.40, nil,
		100000, 20000, 10000, 5500, 115500, 17325, 98175,
		"{}", "", "", paymentMethod, paymentStatus, "cancelled",
		"", nil, nil, "", time.Now(), nil, nil, nil, nil,
	)
}

func TestCancelWithRefund_WalletPaidRefundsTotal(t *testing.T) {
	mock, closeDB, repo := newBookingMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE bookings SET status = \$1, cancelled_at = \$2`).
		WillReturnRows(completedBookingRow("wallet", "paid"))
	mock.ExpectQuery(`SELECT wallet_balance_cents FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("usr-1").
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance_cents"}).AddRow(0))
	mock.ExpectExec(`UPDATE users SET wallet_balance_cents = \$1`).
		WithArgs(int64(115500), sqlmock.AnyArg(), "usr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO wallet_transactions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := repo.CancelWithRefund(context.Background(), "bk-1", "usr-1", "changed plans", domain.CancelActorUser)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelWithRefund_CashBookingSkipsRefund(t *testing.T) {
	mock, closeDB, repo := newBookingMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE bookings SET status = \$1, cancelled_at = \$2`).
		WillReturnRows(completedBookingRow("cash", "unpaid"))
	mock.ExpectCommit()

	_, err := repo.CancelWithRefund(context.Background(), "bk-1", "usr-1", "", domain.CancelActorUser)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelWithRefund_TerminalBooking(t *testing.T) {
	mock, closeDB, repo := newBookingMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE bookings SET status = \$1, cancelled_at = \$2`).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))
	mock.ExpectQuery(`SELECT status FROM bookings WHERE id = \$1 AND user_id = \$2`).
		WithArgs("bk-1", "usr-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))
	mock.ExpectRollback()

	_, err := repo.CancelWithRefund(context.Background(), "bk-1", "usr-1", "", domain.CancelActorUser)
	assert.ErrorIs(t, err, domain.ErrNotCancellable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteWithPayout_CreditsProvider(t *testing.T) {
	mock, closeDB, repo := newBookingMock(t)
	defer closeDB()

	row := sqlmock.NewRows(bookingRowColumns).AddRow(
		"bk-1", "CSB10000001AAA", "usr-1", "svc-1", "prv-1", "12 Marina Road", 6.45, 3.40, nil,
		100000, 20000, 10000, 5500, 115500, 17325, 98175,
		"{}", "", "", "wallet", "paid", "completed",
		"", nil, nil, "", time.Now(), nil, nil, nil, nil,
	)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE bookings SET status = \$1, completed_at = \$2`).
		WillReturnRows(row)
	mock.ExpectQuery(`SELECT wallet_balance_cents FROM providers WHERE id = \$1 FOR UPDATE`).
		WithArgs("prv-1").
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance_cents"}).AddRow(10000))
	mock.ExpectExec(`UPDATE providers SET wallet_balance_cents = \$1`).
		WithArgs(int64(108175), sqlmock.AnyArg(), "prv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO wallet_transactions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE providers SET total_earnings_cents`).
		WithArgs(int64(98175), "prv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := repo.CompleteWithPayout(context.Background(), "bk-1", "prv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)
	assert.Equal(t, int64(98175), b.ProviderPayoutCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseStalledDispatching(t *testing.T) {
	mock, closeDB, repo := newBookingMock(t)
	defer closeDB()

	mock.ExpectQuery(`UPDATE bookings SET status = \$1\s+WHERE status = \$2\s+AND NOT EXISTS`).
		WithArgs(string(domain.BookingStatusPending), string(domain.BookingStatusDispatching),
			string(domain.OfferStatusOffered), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("bk-1").AddRow("bk-2"))

	ids, err := repo.ReleaseStalledDispatching(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"bk-1", "bk-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteWithPayout_WrongState(t *testing.T) {
	mock, closeDB, repo := newBookingMock(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE bookings SET status = \$1, completed_at = \$2`).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))
	mock.ExpectRollback()

	_, err := repo.CompleteWithPayout(context.Background(), "bk-1", "prv-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}
