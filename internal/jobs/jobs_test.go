package jobs

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibndev/citystaff-backend/internal/config"
	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/repository/postgres"
)

type recordingDispatch struct {
	started []string
}

func (d *recordingDispatch) StartDispatch(ctx context.Context, bookingID string) error {
	d.started = append(d.started, bookingID)
	return nil
}

func (d *recordingDispatch) AcceptOffer(ctx context.Context, bookingID, providerID string) (*domain.Booking, error) {
	return nil, nil
}

func (d *recordingDispatch) DeclineOffer(ctx context.Context, bookingID, providerID string) error {
	return nil
}

func TestExpireStaleOffers_RestartsStalledDispatching(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE dispatch_queue SET status = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	// A booking whose offer timers died with the process has no live
	// offered row; the sweep must push it back to pending and redispatch.
	mock.ExpectQuery(`UPDATE bookings SET status = \$1\s+WHERE status = \$2\s+AND NOT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("bk-9"))

	dispatch := &recordingDispatch{}
	jr := NewJobRunner(postgres.NewStore(db), dispatch, &config.Config{})
	jr.ExpireStaleOffers()

	assert.Equal(t, []string{"bk-9"}, dispatch.started)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireStaleOffers_NothingStalled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE dispatch_queue SET status = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE bookings SET status = \$1\s+WHERE status = \$2\s+AND NOT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	dispatch := &recordingDispatch{}
	jr := NewJobRunner(postgres.NewStore(db), dispatch, &config.Config{})
	jr.ExpireStaleOffers()

	assert.Empty(t, dispatch.started)
	assert.NoError(t, mock.ExpectationsWereMet())
}
