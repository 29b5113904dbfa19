package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/gatepass-api/internal/dto"
	"github.com/campus-ops/gatepass-api/internal/middleware"
	"github.com/campus-ops/gatepass-api/internal/models"
	appErrors "github.com/campus-ops/gatepass-api/pkg/errors"
)

type approvalServiceMock struct {
	advisorResp *models.GateRequest
	advisorErr  error
	hodResp     *models.GateRequest
	hodErr      error

	gotDecision models.Decision
	gotRemarks  string
}

func (m *approvalServiceMock) AdvisorDecide(ctx context.Context, requestID, actorID string, decision models.Decision, remarks string) (*models.GateRequest, error) {
	m.gotDecision = decision
	m.gotRemarks = remarks
	return m.advisorResp, m.advisorErr
}

func (m *approvalServiceMock) HodDecide(ctx context.Context, requestID, actorID string, decision models.Decision, remarks string) (*models.GateRequest, error) {
	m.gotDecision = decision
	m.gotRemarks = remarks
	return m.hodResp, m.hodErr
}

type approvalListMock struct {
	resp []models.GateRequest
	err  error
}

func (m *approvalListMock) ListForActor(ctx context.Context, actor *models.JWTClaims) ([]models.GateRequest, error) {
	return m.resp, m.err
}

func advisorContext(t *testing.T, w *httptest.ResponseRecorder, method, path string, body []byte) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "advisor-1", Role: models.RoleAdvisor})
	return c
}

func TestApprovalHandlerApproveWithoutBody(t *testing.T) {
	svc := &approvalServiceMock{advisorResp: &models.GateRequest{ID: "req-1", Status: models.StatusPendingHod}}
	handler := NewApprovalHandler(svc, &approvalListMock{})

	w := httptest.NewRecorder()
	c := advisorContext(t, w, http.MethodPost, "/advisor/requests/req-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.AdvisorApprove(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DecisionApprove, svc.gotDecision)
	assert.Empty(t, svc.gotRemarks)
}

func TestApprovalHandlerRejectPassesRemarks(t *testing.T) {
	svc := &approvalServiceMock{advisorResp: &models.GateRequest{ID: "req-1", Status: models.StatusRejected}}
	handler := NewApprovalHandler(svc, &approvalListMock{})

	body, _ := json.Marshal(dto.DecisionRequest{Remarks: "parents did not consent"})
	w := httptest.NewRecorder()
	c := advisorContext(t, w, http.MethodPost, "/advisor/requests/req-1/reject", body)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.AdvisorReject(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DecisionReject, svc.gotDecision)
	assert.Equal(t, "parents did not consent", svc.gotRemarks)
}

func TestApprovalHandlerMapsErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"forbidden", appErrors.ErrForbidden, http.StatusForbidden},
		{"not found", appErrors.ErrNotFound, http.StatusNotFound},
		{"invalid state", appErrors.ErrInvalidState, http.StatusConflict},
		{"validation", appErrors.ErrValidation, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &approvalServiceMock{hodErr: tc.err}
			handler := NewApprovalHandler(svc, &approvalListMock{})

			w := httptest.NewRecorder()
			c := advisorContext(t, w, http.MethodPost, "/hod/requests/req-1/approve", nil)
			c.Params = gin.Params{{Key: "id", Value: "req-1"}}

			handler.HodApprove(c)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestApprovalHandlerListRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApprovalHandler(&approvalServiceMock{}, &approvalListMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/advisor/requests", nil)

	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApprovalHandlerList(t *testing.T) {
	list := &approvalListMock{resp: []models.GateRequest{{ID: "req-1"}, {ID: "req-2"}}}
	handler := NewApprovalHandler(&approvalServiceMock{}, list)

	w := httptest.NewRecorder()
	c := advisorContext(t, w, http.MethodGet, "/advisor/requests", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.GateRequest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
}
