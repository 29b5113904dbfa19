package models

import "time"

// ScanLog is the immutable audit record appended once per successful
// redemption at the security checkpoint.
type ScanLog struct {
	ID            string    `db:"id" json:"id"`
	RequestID     string    `db:"request_id" json:"request_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	StudentName   string    `db:"student_name" json:"student_name"`
	RollNumber    string    `db:"roll_number" json:"roll_number"`
	ScannedBy     string    `db:"scanned_by" json:"scanned_by"`
	ScannedByName string    `db:"scanned_by_name" json:"scanned_by_name"`
	ScanTime      time.Time `db:"scan_time" json:"scan_time"`
}
