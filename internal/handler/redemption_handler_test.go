package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/gatepass-api/internal/dto"
	"github.com/campus-ops/gatepass-api/internal/middleware"
	"github.com/campus-ops/gatepass-api/internal/models"
	appErrors "github.com/campus-ops/gatepass-api/pkg/errors"
)

type redemptionServiceMock struct {
	redeemResp  *dto.RedemptionResult
	redeemErr   error
	historyResp []models.ScanLog
	historyErr  error
	gotLimit    int
}

func (m *redemptionServiceMock) Redeem(ctx context.Context, token string, scanner *models.JWTClaims) (*dto.RedemptionResult, error) {
	return m.redeemResp, m.redeemErr
}

func (m *redemptionServiceMock) ScanHistory(ctx context.Context, scannerID string, limit int) ([]models.ScanLog, error) {
	m.gotLimit = limit
	return m.historyResp, m.historyErr
}

func securityContext(t *testing.T, w *httptest.ResponseRecorder, method, path string, body []byte) *gin.Context {
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
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "guard-1", Role: models.RoleSecurity, FullName: "Gate Guard"})
	return c
}

func TestRedemptionHandlerScan(t *testing.T) {
	svc := &redemptionServiceMock{redeemResp: &dto.RedemptionResult{
		RequestID: "req-1",
		Student:   dto.StudentSummary{Name: "Priya S", RollNumber: "21CS042"},
		ScannedAt: time.Date(2025, 3, 11, 16, 5, 0, 0, time.UTC),
	}}
	handler := NewRedemptionHandler(svc, 50)

	body, _ := json.Marshal(dto.ScanRequest{QRToken: "tok-1"})
	w := httptest.NewRecorder()
	c := securityContext(t, w, http.MethodPost, "/security/scan", body)

	handler.Scan(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.RedemptionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "req-1", envelope.Data.RequestID)
	assert.NotContains(t, w.Body.String(), "tok-1", "scan response must not echo the token")
}

func TestRedemptionHandlerScanAlreadyUsed(t *testing.T) {
	svc := &redemptionServiceMock{redeemErr: appErrors.ErrAlreadyUsed}
	handler := NewRedemptionHandler(svc, 50)

	body, _ := json.Marshal(dto.ScanRequest{QRToken: "tok-1"})
	w := httptest.NewRecorder()
	c := securityContext(t, w, http.MethodPost, "/security/scan", body)

	handler.Scan(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ALREADY_USED")
}

func TestRedemptionHandlerScanInvalidBody(t *testing.T) {
	handler := NewRedemptionHandler(&redemptionServiceMock{}, 50)

	w := httptest.NewRecorder()
	c := securityContext(t, w, http.MethodPost, "/security/scan", []byte(`not-json`))

	handler.Scan(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedemptionHandlerHistoryLimitOverride(t *testing.T) {
	svc := &redemptionServiceMock{historyResp: []models.ScanLog{{ID: "s1"}}}
	handler := NewRedemptionHandler(svc, 50)

	w := httptest.NewRecorder()
	c := securityContext(t, w, http.MethodGet, "/security/scans?limit=5", nil)

	handler.History(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.gotLimit)
}

func TestRedemptionHandlerHistoryCSV(t *testing.T) {
	svc := &redemptionServiceMock{historyResp: []models.ScanLog{
		{
			RequestID:     "req-1",
			StudentName:   "Priya S",
			RollNumber:    "21CS042",
			ScannedByName: "Gate Guard",
			ScanTime:      time.Date(2025, 3, 11, 16, 5, 0, 0, time.UTC),
		},
	}}
	handler := NewRedemptionHandler(svc, 50)

	w := httptest.NewRecorder()
	c := securityContext(t, w, http.MethodGet, "/security/scans?format=csv", nil)

	handler.History(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "scan-history.csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "scan_time")
	assert.Contains(t, lines[1], "21CS042")
}
