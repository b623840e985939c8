package checkout_test

import (
	"context"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/irsalhamdi/e-commerce-shop/core/checkout"
	"github.com/irsalhamdi/e-commerce-shop/core/order"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderColumns = []string{"order_id", "user_id", "provider", "session_id", "status", "total_price", "created_at", "updated_at"}

func newSQLCoordinator(t *testing.T, gw checkout.Gateway) (*checkout.Coordinator, sqlmock.Sqlmock) {
	t.Helper()

	mdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mdb.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	co := checkout.New(checkout.Config{
		Provider: "paypal",
		Ledger:   checkout.NewSQLLedger(sqlx.NewDb(mdb, "postgres")),
		Gateway:  gw,
		Log:      log,
	})
	return co, mock
}

// The row lock, the status update and the cart flush share one transaction.
func TestSQLLedgerCapture(t *testing.T) {
	gw := newFakeGateway()
	co, mock := newSQLCoordinator(t, gw)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE session_id = $1 FOR UPDATE`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow("o1", "u1", "paypal", "s1", "pending", "500.00", now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET`)).
		WithArgs("completed", sqlmock.AnyArg(), "o1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	res, err := co.ReconcileCapture(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, order.Completed, res.Status)
	assert.Equal(t, 1, gw.captureCount())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerCaptureTerminal(t *testing.T) {
	gw := newFakeGateway()
	co, mock := newSQLCoordinator(t, gw)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow("o1", "u1", "paypal", "s1", "cancelled", "500.00", now, now))
	mock.ExpectCommit()

	res, err := co.ReconcileCapture(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, order.Cancelled, res.Status)
	assert.False(t, res.Changed)
	assert.Zero(t, gw.captureCount())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLedgerCaptureUnknown(t *testing.T) {
	gw := newFakeGateway()
	co, mock := newSQLCoordinator(t, gw)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs("s404").
		WillReturnRows(sqlmock.NewRows(orderColumns))
	mock.ExpectRollback()

	_, err := co.ReconcileCapture(context.Background(), "s404")
	assert.ErrorIs(t, err, checkout.ErrOrderNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

type panickyGateway struct {
	*fakeGateway
}

func (g panickyGateway) CaptureSession(ctx context.Context, sessionID string) (checkout.Capture, error) {
	panic("provider client crashed")
}

// A crash inside the provider call releases the locked order row.
func TestSQLLedgerCapturePanicReleasesLock(t *testing.T) {
	co, mock := newSQLCoordinator(t, panickyGateway{newFakeGateway()})
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE session_id = $1 FOR UPDATE`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow("o1", "u1", "paypal", "s1", "pending", "500.00", now, now))
	mock.ExpectRollback()

	assert.Panics(t, func() {
		co.ReconcileCapture(context.Background(), "s1")
	})
	require.NoError(t, mock.ExpectationsWereMet())
}
