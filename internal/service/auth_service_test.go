package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-ops/gatepass-api/internal/models"
	appErrors "github.com/campus-ops/gatepass-api/pkg/errors"
)

type authUserStoreStub struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
	created []*models.User
}

func newAuthUserStoreStub() *authUserStoreStub {
	return &authUserStoreStub{
		byEmail: make(map[string]*models.User),
		byID:    make(map[string]*models.User),
	}
}

func (s *authUserStoreStub) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-new"
	s.created = append(s.created, user)
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return nil
}

func (s *authUserStoreStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authUserStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authUserStoreStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

type resolverStub struct {
	assignment models.Assignment
	err        error
}

func (s *resolverStub) ResolveAssignment(ctx context.Context, department, year, section string) (models.Assignment, error) {
	return s.assignment, s.err
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		Issuer:             "gatepass-api",
		AllowedEmailDomain: "college.edu",
	}
}

func TestLoginAndValidateTokenRoundTrip(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	users := newAuthUserStoreStub()
	users.byEmail["priya@college.edu"] = &models.User{
		ID:           "student-1",
		Email:        "priya@college.edu",
		PasswordHash: string(hash),
		FullName:     "Priya S",
		Role:         models.RoleStudent,
		Active:       true,
	}
	svc := NewAuthService(users, &resolverStub{}, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "Priya@College.edu", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "student-1", resp.User.ID)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "student-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "Priya S", claims.FullName)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	users := newAuthUserStoreStub()
	users.byEmail["priya@college.edu"] = &models.User{
		ID: "student-1", Email: "priya@college.edu", PasswordHash: string(hash), Active: true,
	}
	svc := NewAuthService(users, &resolverStub{}, nil, nil, testAuthConfig())

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "priya@college.edu", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	svc := NewAuthService(newAuthUserStoreStub(), &resolverStub{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@college.edu", Password: "whatever"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginInactiveAccount(t *testing.T) {
	users := newAuthUserStoreStub()
	users.byEmail["priya@college.edu"] = &models.User{
		ID: "student-1", Email: "priya@college.edu", PasswordHash: "x", Active: false,
	}
	svc := NewAuthService(users, &resolverStub{}, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "priya@college.edu", Password: "whatever"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func validRegistration() models.RegisterStudentRequest {
	return models.RegisterStudentRequest{
		Email:      "new@college.edu",
		Password:   "secret123",
		FullName:   "Arun K",
		Phone:      "9876543210",
		RollNumber: "21CS051",
		Department: "CSE",
		Year:       "3",
		Section:    "B",
	}
}

func TestRegisterStudentAssignsGatekeepers(t *testing.T) {
	adv := "advisor-1"
	hod := "hod-1"
	users := newAuthUserStoreStub()
	svc := NewAuthService(users, &resolverStub{assignment: models.Assignment{AdvisorID: &adv, HodID: &hod}}, nil, nil, testAuthConfig())

	resp, err := svc.RegisterStudent(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Empty(t, resp.Warnings)
	require.Len(t, users.created, 1)
	created := users.created[0]
	assert.Equal(t, models.RoleStudent, created.Role)
	require.NotNil(t, created.AssignedAdvisorID)
	assert.Equal(t, "advisor-1", *created.AssignedAdvisorID)
	require.NotNil(t, created.AssignedHodID)
	assert.Equal(t, "hod-1", *created.AssignedHodID)
	assert.NotEqual(t, "secret123", created.PasswordHash)
}

func TestRegisterStudentWithoutStaffWarns(t *testing.T) {
	users := newAuthUserStoreStub()
	svc := NewAuthService(users, &resolverStub{}, nil, nil, testAuthConfig())

	resp, err := svc.RegisterStudent(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Contains(t, resp.Warnings, "noAdvisor")
	assert.Contains(t, resp.Warnings, "noHod")
	require.Len(t, users.created, 1)
	assert.Nil(t, users.created[0].AssignedAdvisorID)
	assert.Nil(t, users.created[0].AssignedHodID)
}

func TestRegisterStudentWrongDomain(t *testing.T) {
	svc := NewAuthService(newAuthUserStoreStub(), &resolverStub{}, nil, nil, testAuthConfig())

	req := validRegistration()
	req.Email = "new@gmail.com"
	_, err := svc.RegisterStudent(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.True(t, strings.Contains(err.Error(), "college.edu"))
}

func TestRegisterStudentDuplicateEmail(t *testing.T) {
	users := newAuthUserStoreStub()
	users.byEmail["new@college.edu"] = &models.User{ID: "existing"}
	svc := NewAuthService(users, &resolverStub{}, nil, nil, testAuthConfig())

	_, err := svc.RegisterStudent(context.Background(), validRegistration())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := NewAuthService(newAuthUserStoreStub(), &resolverStub{}, nil, nil, testAuthConfig())

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
