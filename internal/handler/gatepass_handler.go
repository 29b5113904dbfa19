package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/campus-ops/gatepass-api/internal/dto"
	"github.com/campus-ops/gatepass-api/internal/models"
	appErrors "github.com/campus-ops/gatepass-api/pkg/errors"
	"github.com/campus-ops/gatepass-api/pkg/export"
	"github.com/campus-ops/gatepass-api/pkg/response"
)

type gatePassService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateGatePassRequest) (*models.GateRequest, error)
	ListForActor(ctx context.Context, actor *models.JWTClaims) ([]models.GateRequest, error)
	GetOwned(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.GateRequest, error)
}

// GatePassHandler exposes the student-facing request endpoints.
type GatePassHandler struct {
	service gatePassService
	slips   *export.SlipExporter
}

// NewGatePassHandler constructs the handler.
func NewGatePassHandler(service gatePassService) *GatePassHandler {
	return &GatePassHandler{service: service, slips: export.NewSlipExporter()}
}

// Create godoc
// @Summary Submit a gate pass request
// @Tags GatePass
// @Accept json
// @Produce json
// @Param payload body dto.CreateGatePassRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /student/requests [post]
func (h *GatePassHandler) Create(c *gin.Context) {
	var req dto.CreateGatePassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List the student's own requests
// @Tags GatePass
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/requests [get]
func (h *GatePassHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	requests, err := h.service.ListForActor(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests)
}

// QR godoc
// @Summary Render the issued credential as a QR PNG
// @Tags GatePass
// @Produce png
// @Param id path string true "Request ID"
// @Success 200 {file} binary
// @Router /student/requests/{id}/qr [get]
func (h *GatePassHandler) QR(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.GetOwned(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if request.QRToken == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidState, "request has no issued credential yet"))
		return
	}
	png, err := qrcode.Encode(*request.QRToken, qrcode.Medium, 256)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr code"))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Slip godoc
// @Summary Download a printable pass slip PDF
// @Tags GatePass
// @Produce application/pdf
// @Param id path string true "Request ID"
// @Success 200 {file} binary
// @Router /student/requests/{id}/slip [get]
func (h *GatePassHandler) Slip(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.GetOwned(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if request.Status != models.StatusApproved && request.Status != models.StatusUsed {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidState, "pass slip is only available for approved requests"))
		return
	}

	slip := export.PassSlip{
		RequestID:   request.ID,
		StudentName: request.StudentName,
		RollNumber:  request.RollNumber,
		Department:  request.Department,
		Year:        request.Year,
		Section:     request.Section,
		Destination: request.Destination,
		Reason:      request.Reason,
		ExitDate:    request.ExitDate,
		ReturnDate:  request.ExpectedReturnDate,
		Status:      string(request.Status),
	}
	if request.HodActionAt != nil {
		slip.ApprovedAt = request.HodActionAt.Format("2006-01-02 15:04")
	}

	pdf, err := h.slips.Render(slip)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pass slip"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="gate-pass-`+request.ID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
