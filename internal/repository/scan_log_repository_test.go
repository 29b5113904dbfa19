package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/gatepass-api/internal/models"
)

func TestScanLogRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewScanLogRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scan_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.ScanLog{
		RequestID:     "req-1",
		StudentID:     "student-1",
		StudentName:   "Priya S",
		RollNumber:    "21CS042",
		ScannedBy:     "guard-1",
		ScannedByName: "Gate Guard",
	}
	require.NoError(t, repo.Create(context.Background(), log))
	require.NotEmpty(t, log.ID)
	require.False(t, log.ScanTime.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanLogRepositoryListByScanner(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewScanLogRepository(db)
	rows := sqlmock.NewRows([]string{"id", "request_id", "student_id", "student_name", "roll_number", "scanned_by", "scanned_by_name", "scan_time"}).
		AddRow("s1", "req-1", "student-1", "Priya S", "21CS042", "guard-1", "Gate Guard", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM scan_logs WHERE scanned_by = $1")).
		WithArgs("guard-1", 50).
		WillReturnRows(rows)

	logs, err := repo.ListByScanner(context.Background(), "guard-1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "req-1", logs[0].RequestID)
	require.NoError(t, mock.ExpectationsWereMet())
}
