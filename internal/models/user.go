package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent  UserRole = "STUDENT"
	RoleAdvisor  UserRole = "ADVISOR"
	RoleHod      UserRole = "HOD"
	RoleSecurity UserRole = "SECURITY"
)

// User represents an application user stored in the users table.
// Students carry a requester profile plus the advisor/HOD resolved at
// registration time; faculty carry the class or department they handle.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Phone        string     `db:"phone" json:"phone"`
	Active       bool       `db:"active" json:"active"`

	// Student profile.
	RollNumber string `db:"roll_number" json:"roll_number,omitempty"`
	Department string `db:"department" json:"department,omitempty"`
	Year       string `db:"year" json:"year,omitempty"`
	Section    string `db:"section" json:"section,omitempty"`

	// Gatekeepers assigned once at registration, never re-resolved.
	AssignedAdvisorID *string `db:"assigned_advisor_id" json:"assigned_advisor_id,omitempty"`
	AssignedHodID     *string `db:"assigned_hod_id" json:"assigned_hod_id,omitempty"`

	// Faculty scope: which class/department this advisor or HOD covers.
	HandlesDepartment string `db:"handles_department" json:"handles_department,omitempty"`
	HandlesYear       string `db:"handles_year" json:"handles_year,omitempty"`
	HandlesSection    string `db:"handles_section" json:"handles_section,omitempty"`

	LastLogin *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Assignment holds the gatekeepers resolved for a requester's class.
type Assignment struct {
	AdvisorID *string `json:"advisor_id"`
	HodID     *string `json:"hod_id"`
}
