package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := NewGormStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestGormStoreLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	l := NewLedger(store, WithClock(tickingClock()),
		WithCodeGenerator(func(string) (string, error) { return "SEN-ABC123", nil }))

	_, err := l.RegisterDraft(ctx, "cart-42", []string{"Overlock x1"})
	require.NoError(t, err)
	_, _, err = l.Transition(ctx, "cart-42", StatusPaid)
	require.NoError(t, err)
	_, _, err = l.Transition(ctx, "cart-42", StatusVoided)
	require.NoError(t, err)

	rec, err := l.GetByReference(ctx, "cart-42")
	require.NoError(t, err)
	assert.Equal(t, StatusVoided, rec.Status)
	assert.Equal(t, []string{"Overlock x1"}, rec.Items)
	require.Len(t, rec.History, 3)
	assert.Equal(t, StatusVoided, rec.History[0].Status)
	assert.Equal(t, StatusPaid, rec.History[1].Status)
	assert.Equal(t, StatusPending, rec.History[2].Status)
	assert.True(t, rec.UpdatedAt.Equal(rec.History[0].UpdatedAt))

	byCode, err := l.GetByVerificationCode(ctx, "sen-abc123")
	require.NoError(t, err)
	assert.Equal(t, "cart-42", byCode.Reference)
}

func TestGormStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetByVerificationCode(ctx, "SEN-NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStoreEnsureDoesNotRewrite(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(newSQLiteStore(t), WithClock(tickingClock()))

	a, err := l.Ensure(ctx, "cart-1")
	require.NoError(t, err)
	b, err := l.Ensure(ctx, "cart-1")
	require.NoError(t, err)

	assert.Equal(t, a.VerificationCode, b.VerificationCode)
	assert.True(t, a.UpdatedAt.Equal(b.UpdatedAt))
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm duplicate", gorm.ErrDuplicatedKey, true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, true},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait timeout", &mysql.MySQLError{Number: 1205}, true},
		{"wrapped deadlock", fmt.Errorf("tx: %w", &mysql.MySQLError{Number: 1213}), true},
		{"mysql syntax error", &mysql.MySQLError{Number: 1064}, false},
		{"not found", gorm.ErrRecordNotFound, false},
		{"other", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isRetryable(tc.err))
		})
	}
}

func TestGormStoreReseedsOnCodeCollision(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	_, err := store.Mutate(ctx, "cart-1",
		func() (Record, error) { return newRecord("cart-1", "SEN-TAKEN", testNow), nil },
		func(*Record) bool { return false })
	require.NoError(t, err)

	codes := []string{"SEN-TAKEN", "SEN-FRESH"}
	calls := 0
	rec, err := store.Mutate(ctx, "cart-2",
		func() (Record, error) {
			c := codes[calls]
			calls++
			return newRecord("cart-2", c, testNow), nil
		},
		func(r *Record) bool { r.apply(StatusPaid, testNow); return true })
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "SEN-FRESH", rec.VerificationCode)
	assert.Equal(t, StatusPaid, rec.Status)

	got, err := store.GetByVerificationCode(ctx, "SEN-FRESH")
	require.NoError(t, err)
	assert.Equal(t, "cart-2", got.Reference)
}

func TestGormStoreSeedErrorIsReturned(t *testing.T) {
	store := newSQLiteStore(t)
	_, err := store.Mutate(context.Background(), "cart-1",
		func() (Record, error) { return Record{}, errors.New("entropy exhausted") },
		func(*Record) bool { return true })
	assert.EqualError(t, err, "entropy exhausted")

	_, err = store.Get(context.Background(), "cart-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
