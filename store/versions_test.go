package store_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"planboard/store"
)

// prefixMatcher compares normalized SQL by prefix, which keeps the tests
// stable against gorm's quoting and trailing clauses.
func prefixMatcher() sqlmock.QueryMatcher {
	return sqlmock.QueryMatcherFunc(func(expected, actual string) error {
		normalize := func(s string) string {
			return strings.Join(strings.Fields(s), " ")
		}
		if strings.HasPrefix(normalize(actual), normalize(expected)) {
			return nil
		}
		return fmt.Errorf("query %q does not start with %q", actual, expected)
	})
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(prefixMatcher()),
	)
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{})
	require.NoError(t, err)

	return gdb, mock, func() { mockDB.Close() }
}

func TestVersionStore_CompareAndIncrement(t *testing.T) {
	tests := []struct {
		name     string
		kind     store.Kind
		table    string
		rows     int64
		wantDone bool
	}{
		{name: "phase match increments", kind: store.KindPhase, table: "phases", rows: 1, wantDone: true},
		{name: "assignment stale version", kind: store.KindAssignment, table: "assignments", rows: 0, wantDone: false},
		{name: "project match increments", kind: store.KindProject, table: "projects", rows: 1, wantDone: true},
		{name: "task stale version", kind: store.KindTask, table: "tasks", rows: 0, wantDone: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gdb, mock, closeFn := newMockDB(t)
			defer closeFn()

			// The compare and the increment must be one statement.
			mock.ExpectExec("UPDATE " + tt.table + " SET version = version + 1 WHERE id = $1 AND version = $2").
				WithArgs(5, 3).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			st := store.New(gdb, zap.NewNop().Sugar())
			done, err := st.Versions().CompareAndIncrement(context.Background(), tt.kind, 5, 3)
			require.NoError(t, err)
			require.Equal(t, tt.wantDone, done)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVersionStore_UnknownKind(t *testing.T) {
	gdb, _, closeFn := newMockDB(t)
	defer closeFn()

	st := store.New(gdb, zap.NewNop().Sugar())
	_, err := st.Versions().CompareAndIncrement(context.Background(), store.Kind("widget"), 1, 1)
	require.Error(t, err)

	_, _, err = st.Versions().Load(context.Background(), store.Kind("widget"), 1)
	require.Error(t, err)
}

func TestVersionStore_Load(t *testing.T) {
	gdb, mock, closeFn := newMockDB(t)
	defer closeFn()

	mock.ExpectQuery(`SELECT "version" FROM "phases" WHERE id = $1`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(7))

	st := store.New(gdb, zap.NewNop().Sugar())
	version, found, err := st.Versions().Load(context.Background(), store.KindPhase, 5)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 7, version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionStore_LoadMissing(t *testing.T) {
	gdb, mock, closeFn := newMockDB(t)
	defer closeFn()

	mock.ExpectQuery(`SELECT "version" FROM "phases" WHERE id = $1`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	st := store.New(gdb, zap.NewNop().Sugar())
	_, found, err := st.Versions().Load(context.Background(), store.KindPhase, 5)
	require.NoError(t, err)
	require.False(t, found)
}
