package order

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderColumns = []string{"order_id", "user_id", "provider", "session_id", "status", "total_price", "created_at", "updated_at"}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "postgres"), mock
}

func TestUpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`WHERE order_id = $3 AND status = 'pending'`)).
		WithArgs("completed", now, "o1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := UpdateStatus(context.Background(), db, StatusUp{ID: "o1", Status: Completed, UpdatedAt: now})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusNotPending(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := UpdateStatus(context.Background(), db, StatusUp{ID: "o1", Status: Cancelled, UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotPending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockBySession(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(orderColumns).
		AddRow("o1", "u1", "paypal", "s1", "pending", "500.00", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE session_id = $1 FOR UPDATE`)).
		WithArgs("s1").
		WillReturnRows(rows)

	ord, err := LockBySession(context.Background(), db, "s1")
	require.NoError(t, err)
	assert.Equal(t, "o1", ord.ID)
	assert.Equal(t, Pending, ord.Status)
	assert.True(t, ord.TotalPrice.Equal(decimal.NewFromInt(500)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockBySessionNotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	_, err := LockBySession(context.Background(), db, "nope")
	assert.ErrorIs(t, err, database.ErrDBNotFound)
}

func TestCreateDuplicatedSession(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders`)).
		WillReturnError(&pq.Error{Code: "23505"})

	err := Create(context.Background(), db, Order{ID: "o1", SessionID: "s1", Status: Pending})
	assert.ErrorIs(t, err, database.ErrDBDuplicatedEntry)
}

func TestFetchPendingBefore(t *testing.T) {
	db, mock := newMock(t)
	before := time.Now().UTC()
	old := before.Add(-time.Hour)

	rows := sqlmock.NewRows(orderColumns).
		AddRow("o1", "u1", "paypal", "s1", "pending", "20.00", old, old).
		AddRow("o2", "u2", "paypal", "s2", "pending", "15.00", old, old)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE provider = $1 AND status = 'pending' AND created_at < $2`)).
		WithArgs("paypal", before).
		WillReturnRows(rows)

	orders, err := FetchPendingBefore(context.Background(), db, "paypal", before)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "s2", orders[1].SessionID)
}

func TestFetchByUserEmpty(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(orderColumns))

	orders, err := FetchByUser(context.Background(), db, "u1")
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}
