package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-ops/gatepass-api/internal/dto"
	"github.com/campus-ops/gatepass-api/internal/models"
	appErrors "github.com/campus-ops/gatepass-api/pkg/errors"
	"github.com/campus-ops/gatepass-api/pkg/export"
	"github.com/campus-ops/gatepass-api/pkg/response"
)

type redemptionService interface {
	Redeem(ctx context.Context, token string, scanner *models.JWTClaims) (*dto.RedemptionResult, error)
	ScanHistory(ctx context.Context, scannerID string, limit int) ([]models.ScanLog, error)
}

// RedemptionHandler exposes the security checkpoint endpoints.
type RedemptionHandler struct {
	service      redemptionService
	csv          *export.CSVExporter
	historyLimit int
}

// NewRedemptionHandler constructs the handler.
func NewRedemptionHandler(service redemptionService, historyLimit int) *RedemptionHandler {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &RedemptionHandler{service: service, csv: export.NewCSVExporter(), historyLimit: historyLimit}
}

// Scan godoc
// @Summary Verify and consume a presented gate pass credential
// @Tags Security
// @Accept json
// @Produce json
// @Param payload body dto.ScanRequest true "Presented token"
// @Success 200 {object} response.Envelope
// @Router /security/scan [post]
func (h *RedemptionHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "qr token is required"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Redeem(c.Request.Context(), req.QRToken, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// History godoc
// @Summary List this guard's recent scans
// @Tags Security
// @Produce json
// @Param limit query int false "Max rows"
// @Param format query string false "Set to csv for a CSV download"
// @Success 200 {object} response.Envelope
// @Router /security/scans [get]
func (h *RedemptionHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	logs, err := h.service.ScanHistory(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.Query("format") == "csv" {
		h.renderCSV(c, logs)
		return
	}
	response.JSON(c, http.StatusOK, logs)
}

func (h *RedemptionHandler) renderCSV(c *gin.Context, logs []models.ScanLog) {
	headers := []string{"scan_time", "request_id", "student_name", "roll_number", "scanned_by_name"}
	rows := make([]map[string]string, 0, len(logs))
	for _, log := range logs {
		rows = append(rows, map[string]string{
			"scan_time":       log.ScanTime.UTC().Format("2006-01-02 15:04:05"),
			"request_id":      log.RequestID,
			"student_name":    log.StudentName,
			"roll_number":     log.RollNumber,
			"scanned_by_name": log.ScannedByName,
		})
	}

	payload, err := h.csv.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="scan-history.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}
