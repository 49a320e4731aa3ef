package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"planboard/models"
	"planboard/store"
)

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAssignmentStore_UpdateVersioned(t *testing.T) {
	tests := []struct {
		name     string
		rows     int64
		wantRows int64
	}{
		{name: "current version applies", rows: 1, wantRows: 1},
		{name: "stale version touches nothing", rows: 0, wantRows: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gdb, mock, closeFn := newMockDB(t)
			defer closeFn()

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "assignments" SET`).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))
			mock.ExpectCommit()

			st := store.New(gdb, zap.NewNop().Sugar())
			affected, err := st.Assignments().UpdateVersioned(context.Background(), 5, 2, map[string]any{
				"working_percentage": 70,
			})
			require.NoError(t, err)
			require.Equal(t, tt.wantRows, affected)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAssignmentStore_DeleteVersioned(t *testing.T) {
	gdb, mock, closeFn := newMockDB(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "assignments" WHERE id = $1 AND version = $2`).
		WithArgs(5, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	st := store.New(gdb, zap.NewNop().Sugar())
	affected, err := st.Assignments().DeleteVersioned(context.Background(), 5, 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentStore_CreateDuplicate(t *testing.T) {
	gdb, mock, closeFn := newMockDB(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "assignments"`).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_assignment_phase_member_role" (SQLSTATE 23505)`))
	mock.ExpectRollback()

	st := store.New(gdb, zap.NewNop().Sugar())
	err := st.Assignments().Create(context.Background(), &models.Assignment{
		PhaseID:           1,
		TeamMemberID:      7,
		Role:              "dev",
		WorkingPercentage: 50,
		StartDate:         mustDate("2025-01-01"),
	})
	require.ErrorIs(t, err, store.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}
