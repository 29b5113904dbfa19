package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-ops/gatepass-api/internal/models"
)

const requestColumns = `id, student_id, student_name, student_email, roll_number, department, year, section,
       reason, destination, exit_date, expected_return_date, contact_number, status,
       advisor_id, advisor_status, advisor_remarks, advisor_action_at,
       hod_id, hod_status, hod_remarks, hod_action_at,
       qr_token, qr_used, used_at, used_by, created_at`

// RequestRepository persists gate pass requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new gate pass request row.
func (r *RequestRepository) Create(ctx context.Context, request *models.GateRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.StatusPendingAdvisor
	}
	if request.AdvisorStatus == "" {
		request.AdvisorStatus = models.StagePending
	}
	if request.HodStatus == "" {
		request.HodStatus = models.StagePending
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO gate_requests
	(id, student_id, student_name, student_email, roll_number, department, year, section,
	 reason, destination, exit_date, expected_return_date, contact_number, status,
	 advisor_id, advisor_status, advisor_remarks, advisor_action_at,
	 hod_id, hod_status, hod_remarks, hod_action_at,
	 qr_token, qr_used, used_at, used_by, created_at)
	VALUES (:id, :student_id, :student_name, :student_email, :roll_number, :department, :year, :section,
	 :reason, :destination, :exit_date, :expected_return_date, :contact_number, :status,
	 :advisor_id, :advisor_status, :advisor_remarks, :advisor_action_at,
	 :hod_id, :hod_status, :hod_remarks, :hod_action_at,
	 :qr_token, :qr_used, :used_at, :used_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create gate request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.GateRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM gate_requests WHERE id = $1`, requestColumns)
	var request models.GateRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// GetByToken fetches a request by its issued credential.
func (r *RequestRepository) GetByToken(ctx context.Context, token string) (*models.GateRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM gate_requests WHERE qr_token = $1`, requestColumns)
	var request models.GateRequest
	if err := r.db.GetContext(ctx, &request, query, token); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter (newest first).
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.GateRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM gate_requests", requestColumns))

	conditions := make([]string, 0, 4)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.AdvisorID != "" {
		args = append(args, filter.AdvisorID)
		conditions = append(conditions, fmt.Sprintf("advisor_id = $%d", len(args)))
	}
	if filter.HodID != "" {
		args = append(args, filter.HodID)
		conditions = append(conditions, fmt.Sprintf("hod_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.GateRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list gate requests: %w", err)
	}
	return requests, nil
}

// Stage identifies which approval stage a decision targets.
type Stage string

const (
	StageAdvisor Stage = "advisor"
	StageHod     Stage = "hod"
)

// StageDecisionParams groups the columns written by a stage decision.
type StageDecisionParams struct {
	ID          string
	Stage       Stage
	NewStatus   models.RequestStatus
	StageStatus models.StageStatus
	Remarks     string
	ActionAt    time.Time
	QRToken     *string
}

// ApplyStageDecision writes a stage decision guarded on the expected
// current status, so a stage can only ever be decided once. Returns
// sql.ErrNoRows when the guard fails (already decided or moved on).
func (r *RequestRepository) ApplyStageDecision(ctx context.Context, params StageDecisionParams) error {
	var query string
	var guard models.RequestStatus
	switch params.Stage {
	case StageAdvisor:
		guard = models.StatusPendingAdvisor
		query = `UPDATE gate_requests
			SET status = :status, advisor_status = :stage_status, advisor_remarks = :remarks, advisor_action_at = :action_at
			WHERE id = :id AND status = :guard`
	case StageHod:
		guard = models.StatusPendingHod
		query = `UPDATE gate_requests
			SET status = :status, hod_status = :stage_status, hod_remarks = :remarks, hod_action_at = :action_at, qr_token = :qr_token
			WHERE id = :id AND status = :guard`
	default:
		return fmt.Errorf("unknown stage: %s", params.Stage)
	}

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":           params.ID,
		"status":       params.NewStatus,
		"stage_status": params.StageStatus,
		"remarks":      params.Remarks,
		"action_at":    params.ActionAt,
		"qr_token":     params.QRToken,
		"guard":        guard,
	})
	if err != nil {
		return fmt.Errorf("apply %s decision: %w", params.Stage, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s decision rows: %w", params.Stage, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkUsedParams groups the columns written on redemption.
type MarkUsedParams struct {
	ID     string
	UsedAt time.Time
	UsedBy string
}

// MarkUsed consumes the credential with compare-and-set semantics: the
// update only lands while qr_used is still false and the request is
// approved. Returns sql.ErrNoRows when a concurrent scan won the race.
func (r *RequestRepository) MarkUsed(ctx context.Context, params MarkUsedParams) error {
	const query = `UPDATE gate_requests
		SET status = :status, qr_used = TRUE, used_at = :used_at, used_by = :used_by
		WHERE id = :id AND qr_used = FALSE AND status = :guard`
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":      params.ID,
		"status":  models.StatusUsed,
		"used_at": params.UsedAt,
		"used_by": params.UsedBy,
		"guard":   models.StatusApproved,
	})
	if err != nil {
		return fmt.Errorf("mark gate request used: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check mark used rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
