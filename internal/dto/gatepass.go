package dto

import "time"

// CreateGatePassRequest is the student submission payload.
type CreateGatePassRequest struct {
	Reason             string `json:"reason" validate:"required,min=10"`
	Destination        string `json:"destination" validate:"required"`
	ExitDate           string `json:"exitDate" validate:"required"`
	ExpectedReturnDate string `json:"expectedReturnDate" validate:"required"`
	ContactNumber      string `json:"contactNumber" validate:"required"`
}

// DecisionRequest carries an approver's remarks. Remarks are optional on
// approval and mandatory (min 5 chars) on rejection; the service enforces
// the rejection rule so the same payload serves both endpoints.
type DecisionRequest struct {
	Remarks string `json:"remarks"`
}

// ScanRequest presents a credential for redemption.
type ScanRequest struct {
	QRToken string `json:"qrToken" validate:"required"`
}

// StudentSummary is the requester identity shown to the checkpoint
// operator after a successful scan.
type StudentSummary struct {
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber"`
	Department string `json:"department"`
	Year       string `json:"year"`
	Section    string `json:"section"`
}

// TripSummary is the trip detail shown alongside the student summary.
type TripSummary struct {
	Reason             string `json:"reason"`
	Destination        string `json:"destination"`
	ExitDate           string `json:"exitDate"`
	ExpectedReturnDate string `json:"expectedReturnDate"`
}

// RedemptionResult is returned on a successful scan. It never echoes
// the token back.
type RedemptionResult struct {
	RequestID string         `json:"requestId"`
	Student   StudentSummary `json:"student"`
	Trip      TripSummary    `json:"trip"`
	ScannedAt time.Time      `json:"scannedAt"`
}
