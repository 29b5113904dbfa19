package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-ops/gatepass-api/internal/models"
)

const userColumns = `id, email, password_hash, full_name, role, phone, active,
       roll_number, department, year, section,
       assigned_advisor_id, assigned_hod_id,
       handles_department, handles_year, handles_section,
       last_login, created_at, updated_at`

// UserRepository persists accounts and backs the directory lookups.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users
	(id, email, password_hash, full_name, role, phone, active,
	 roll_number, department, year, section,
	 assigned_advisor_id, assigned_hod_id,
	 handles_department, handles_year, handles_section,
	 last_login, created_at, updated_at)
	VALUES (:id, :email, :password_hash, :full_name, :role, :phone, :active,
	 :roll_number, :department, :year, :section,
	 :assigned_advisor_id, :assigned_hod_id,
	 :handles_department, :handles_year, :handles_section,
	 :last_login, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail fetches a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID fetches a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindAdvisorFor returns the advisor covering a class, if any.
func (r *UserRepository) FindAdvisorFor(ctx context.Context, department, year, section string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users
	WHERE role = $1 AND active = TRUE AND handles_department = $2 AND handles_year = $3 AND handles_section = $4
	LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, models.RoleAdvisor, department, year, section); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindHodFor returns the department head covering a department, if any.
func (r *UserRepository) FindHodFor(ctx context.Context, department string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users
	WHERE role = $1 AND active = TRUE AND handles_department = $2
	LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, models.RoleHod, department); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin stamps the login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $1, updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, ts, id); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
