package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/party-booking/internal/model"
)

var listColumns = []string{
	"id", "event_date", "event_time", "customer_name", "customer_phone", "child_name",
	"package_tier", "total_amount", "deposit_amount", "remaining_amount", "is_paid", "notes", "created_at",
}

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMySQLStore(db), mock
}

func TestMySQLStore_List(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM reservations ORDER BY event_date, id").
		WillReturnRows(sqlmock.NewRows(listColumns).
			AddRow("x1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), "15:00", "Ana", "555-1", "Sofi",
				"mid", int64(5000), int64(1000), int64(4000), false, nil, created).
			AddRow("x2", time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC), "", "Luis", "555-2", "Leo",
				"premium", int64(9000), int64(9000), int64(0), true, "piñata", created))

	got, err := store.List(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-06-01", got[0].Date)
	assert.Equal(t, model.TierMid, got[0].Package)
	assert.Empty(t, got[0].Notes)
	assert.Equal(t, "piñata", got[1].Notes)
	assert.True(t, got[1].IsPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_List_NormalizesPackageTier(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM reservations").
		WillReturnRows(sqlmock.NewRows(listColumns).
			AddRow("x1", day, "", "Ana", "555-1", "Sofi", "Premium", int64(9500), int64(0), int64(9500), false, nil, created).
			AddRow("x2", day, "", "Luis", "555-2", "Leo", "Básico", int64(3500), int64(0), int64(3500), false, nil, created))

	got, err := store.List(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.TierPremium, got[0].Package)
	assert.Equal(t, model.TierBasic, got[1].Package)
}

func TestMySQLStore_List_UnknownTierIsSchemaMismatch(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM reservations").
		WillReturnRows(sqlmock.NewRows(listColumns).
			AddRow("x1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), "", "Ana", "555-1", "Sofi",
				"gold", int64(9500), int64(0), int64(9500), false, nil, time.Now()))

	_, err := store.List(context.Background())

	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.ErrorIs(t, err, model.ErrUnknownPackageTier)
}

func TestMySQLStore_Create_DuplicateIsConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO reservations").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x1' for key 'PRIMARY'"})

	err := store.Create(context.Background(), model.Reservation{ID: "x1", Date: "2025-06-01"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Update_FallsBackToNaturalKey(t *testing.T) {
	store, mock := newMockStore(t)
	r := model.Reservation{ID: "sheet_3_1717200000", Date: "2025-06-01", CustomerName: " Ana", CustomerPhone: "555-1", Package: model.TierMid}

	mock.ExpectExec("UPDATE reservations SET (.+) WHERE id = ?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE reservations SET (.+) WHERE event_date = \\? AND LOWER").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"2025-06-01", "ana", "555-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Update(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Delete_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM reservations WHERE id = ?").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM reservations WHERE event_date").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), Key{ID: "missing", Natural: model.NewNaturalKey("2025-06-01", "x", "y")})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_List_Unavailable(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT").WillReturnError(context.DeadlineExceeded)

	_, err := store.List(context.Background())

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
