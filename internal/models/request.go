package models

import "time"

// RequestStatus is the authoritative lifecycle state of a gate pass request.
type RequestStatus string

const (
	StatusPendingAdvisor RequestStatus = "pending_advisor"
	StatusPendingHod     RequestStatus = "pending_hod"
	StatusApproved       RequestStatus = "approved"
	StatusRejected       RequestStatus = "rejected"
	StatusUsed           RequestStatus = "used"
)

// StageStatus captures the per-stage decision sub-status.
type StageStatus string

const (
	StagePending  StageStatus = "pending"
	StageApproved StageStatus = "approved"
	StageRejected StageStatus = "rejected"
)

// Decision is the verdict an approver renders on a stage.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// GateRequest is a student's exit request moving through the two-stage
// approval pipeline. Requester snapshot and content are immutable after
// creation; stage decision fields are written exactly once per stage.
type GateRequest struct {
	ID string `db:"id" json:"id"`

	StudentID    string `db:"student_id" json:"student_id"`
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	RollNumber   string `db:"roll_number" json:"roll_number"`
	Department   string `db:"department" json:"department"`
	Year         string `db:"year" json:"year"`
	Section      string `db:"section" json:"section"`

	Reason             string `db:"reason" json:"reason"`
	Destination        string `db:"destination" json:"destination"`
	ExitDate           string `db:"exit_date" json:"exit_date"`
	ExpectedReturnDate string `db:"expected_return_date" json:"expected_return_date"`
	ContactNumber      string `db:"contact_number" json:"contact_number"`

	Status RequestStatus `db:"status" json:"status"`

	AdvisorID       *string     `db:"advisor_id" json:"advisor_id,omitempty"`
	AdvisorStatus   StageStatus `db:"advisor_status" json:"advisor_status"`
	AdvisorRemarks  *string     `db:"advisor_remarks" json:"advisor_remarks,omitempty"`
	AdvisorActionAt *time.Time  `db:"advisor_action_at" json:"advisor_action_at,omitempty"`

	HodID       *string     `db:"hod_id" json:"hod_id,omitempty"`
	HodStatus   StageStatus `db:"hod_status" json:"hod_status"`
	HodRemarks  *string     `db:"hod_remarks" json:"hod_remarks,omitempty"`
	HodActionAt *time.Time  `db:"hod_action_at" json:"hod_action_at,omitempty"`

	QRToken *string    `db:"qr_token" json:"qr_token,omitempty"`
	QRUsed  bool       `db:"qr_used" json:"qr_used"`
	UsedAt  *time.Time `db:"used_at" json:"used_at,omitempty"`
	UsedBy  *string    `db:"used_by" json:"used_by,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Sanitized returns a copy safe for approver listings: the credential
// is visible only to the requester's own view.
func (r GateRequest) Sanitized() GateRequest {
	clone := r
	clone.QRToken = nil
	return clone
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	StudentID string
	AdvisorID string
	HodID     string
	Status    []RequestStatus
	Limit     int
	Offset    int
}
