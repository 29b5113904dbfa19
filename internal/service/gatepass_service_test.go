package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/gatepass-api/internal/dto"
	"github.com/campus-ops/gatepass-api/internal/models"
	appErrors "github.com/campus-ops/gatepass-api/pkg/errors"
)

type gatePassRepoStub struct {
	created  []*models.GateRequest
	byID     map[string]*models.GateRequest
	listResp []models.GateRequest
	listErr  error
	filter   models.RequestFilter
}

func (s *gatePassRepoStub) Create(ctx context.Context, request *models.GateRequest) error {
	request.ID = "req-new"
	s.created = append(s.created, request)
	return nil
}

func (s *gatePassRepoStub) GetByID(ctx context.Context, id string) (*models.GateRequest, error) {
	if req, ok := s.byID[id]; ok {
		clone := *req
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *gatePassRepoStub) List(ctx context.Context, filter models.RequestFilter) ([]models.GateRequest, error) {
	s.filter = filter
	return s.listResp, s.listErr
}

type userStoreStub struct {
	byID map[string]*models.User
}

func (s *userStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func studentUser() *models.User {
	adv := "advisor-1"
	hod := "hod-1"
	return &models.User{
		ID:                "student-1",
		Email:             "priya@college.edu",
		FullName:          "Priya S",
		Role:              models.RoleStudent,
		RollNumber:        "21CS042",
		Department:        "CSE",
		Year:              "3",
		Section:           "B",
		AssignedAdvisorID: &adv,
		AssignedHodID:     &hod,
	}
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent, FullName: "Priya S"}
}

func validCreatePayload() dto.CreateGatePassRequest {
	return dto.CreateGatePassRequest{
		Reason:             "attending my sister's wedding",
		Destination:        "Coimbatore",
		ExitDate:           "2025-03-14",
		ExpectedReturnDate: "2025-03-16",
		ContactNumber:      "9876543210",
	}
}

func TestCreateCopiesSnapshotAndRouting(t *testing.T) {
	repo := &gatePassRepoStub{}
	users := &userStoreStub{byID: map[string]*models.User{"student-1": studentUser()}}
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	svc := NewGatePassService(repo, users, nil, WithGatePassClock(fixedClock(now)))

	request, err := svc.Create(context.Background(), studentClaims(), validCreatePayload())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingAdvisor, request.Status)
	assert.Equal(t, models.StagePending, request.AdvisorStatus)
	assert.Equal(t, models.StagePending, request.HodStatus)
	assert.Equal(t, "Priya S", request.StudentName)
	assert.Equal(t, "21CS042", request.RollNumber)
	require.NotNil(t, request.AdvisorID)
	assert.Equal(t, "advisor-1", *request.AdvisorID)
	require.NotNil(t, request.HodID)
	assert.Equal(t, "hod-1", *request.HodID)
	assert.Nil(t, request.QRToken)
	assert.Equal(t, now, request.CreatedAt)
	require.Len(t, repo.created, 1)
}

func TestCreateUnassignedGatekeepersStillAccepted(t *testing.T) {
	student := studentUser()
	student.AssignedAdvisorID = nil
	student.AssignedHodID = nil
	repo := &gatePassRepoStub{}
	users := &userStoreStub{byID: map[string]*models.User{"student-1": student}}
	svc := NewGatePassService(repo, users, nil)

	request, err := svc.Create(context.Background(), studentClaims(), validCreatePayload())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingAdvisor, request.Status)
	assert.Nil(t, request.AdvisorID)
	assert.Nil(t, request.HodID)
}

func TestCreateShortReasonRejected(t *testing.T) {
	repo := &gatePassRepoStub{}
	users := &userStoreStub{byID: map[string]*models.User{"student-1": studentUser()}}
	svc := NewGatePassService(repo, users, nil)

	payload := validCreatePayload()
	payload.Reason = "shopping"
	_, err := svc.Create(context.Background(), studentClaims(), payload)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, repo.created)
}

func TestCreateNonStudentForbidden(t *testing.T) {
	svc := NewGatePassService(&gatePassRepoStub{}, &userStoreStub{}, nil)

	actor := &models.JWTClaims{UserID: "advisor-1", Role: models.RoleAdvisor}
	_, err := svc.Create(context.Background(), actor, validCreatePayload())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestListForActorScopesByRole(t *testing.T) {
	token := "secret-token"
	repo := &gatePassRepoStub{listResp: []models.GateRequest{
		{ID: "req-1", Status: models.StatusPendingAdvisor, QRToken: &token},
	}}
	svc := NewGatePassService(repo, &userStoreStub{}, nil)

	advisor := &models.JWTClaims{UserID: "advisor-1", Role: models.RoleAdvisor}
	requests, err := svc.ListForActor(context.Background(), advisor)
	require.NoError(t, err)
	assert.Equal(t, "advisor-1", repo.filter.AdvisorID)
	assert.Equal(t, []models.RequestStatus{models.StatusPendingAdvisor}, repo.filter.Status)
	require.Len(t, requests, 1)
	assert.Nil(t, requests[0].QRToken, "approver listing must not expose the credential")

	hod := &models.JWTClaims{UserID: "hod-1", Role: models.RoleHod}
	_, err = svc.ListForActor(context.Background(), hod)
	require.NoError(t, err)
	assert.Equal(t, "hod-1", repo.filter.HodID)
	assert.Equal(t, []models.RequestStatus{models.StatusPendingHod}, repo.filter.Status)

	student := studentClaims()
	_, err = svc.ListForActor(context.Background(), student)
	require.NoError(t, err)
	assert.Equal(t, "student-1", repo.filter.StudentID)
	assert.Empty(t, repo.filter.Status)
}

func TestListForActorSecurityForbidden(t *testing.T) {
	svc := NewGatePassService(&gatePassRepoStub{}, &userStoreStub{}, nil)

	_, err := svc.ListForActor(context.Background(), securityClaims())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestGetOwnedForeignRequestHidden(t *testing.T) {
	repo := &gatePassRepoStub{byID: map[string]*models.GateRequest{
		"req-1": {ID: "req-1", StudentID: "someone-else"},
	}}
	svc := NewGatePassService(repo, &userStoreStub{}, nil)

	_, err := svc.GetOwned(context.Background(), studentClaims(), "req-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestGetOwnedReturnsToken(t *testing.T) {
	token := "tok-9"
	repo := &gatePassRepoStub{byID: map[string]*models.GateRequest{
		"req-1": {ID: "req-1", StudentID: "student-1", Status: models.StatusApproved, QRToken: &token},
	}}
	svc := NewGatePassService(repo, &userStoreStub{}, nil)

	request, err := svc.GetOwned(context.Background(), studentClaims(), "req-1")
	require.NoError(t, err)
	require.NotNil(t, request.QRToken)
	assert.Equal(t, "tok-9", *request.QRToken)
}
