package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-ops/gatepass-api/internal/models"
)

// ScanLogRepository persists checkpoint scan audit records. Rows are
// append-only; there is no update or delete path.
type ScanLogRepository struct {
	db *sqlx.DB
}

// NewScanLogRepository constructs the repository.
func NewScanLogRepository(db *sqlx.DB) *ScanLogRepository {
	return &ScanLogRepository{db: db}
}

// Create appends one scan log entry.
func (r *ScanLogRepository) Create(ctx context.Context, log *models.ScanLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.ScanTime.IsZero() {
		log.ScanTime = time.Now().UTC()
	}
	const query = `INSERT INTO scan_logs
	(id, request_id, student_id, student_name, roll_number, scanned_by, scanned_by_name, scan_time)
	VALUES (:id, :request_id, :student_id, :student_name, :roll_number, :scanned_by, :scanned_by_name, :scan_time)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create scan log: %w", err)
	}
	return nil
}

// ListByScanner returns the most recent scans performed by one actor.
func (r *ScanLogRepository) ListByScanner(ctx context.Context, scannerID string, limit int) ([]models.ScanLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `SELECT id, request_id, student_id, student_name, roll_number, scanned_by, scanned_by_name, scan_time
	FROM scan_logs WHERE scanned_by = $1 ORDER BY scan_time DESC LIMIT $2`
	var logs []models.ScanLog
	if err := r.db.SelectContext(ctx, &logs, query, scannerID, limit); err != nil {
		return nil, fmt.Errorf("list scan logs: %w", err)
	}
	return logs, nil
}
