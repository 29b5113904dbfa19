package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-ops/gatepass-api/internal/dto"
	"github.com/campus-ops/gatepass-api/internal/models"
	appErrors "github.com/campus-ops/gatepass-api/pkg/errors"
	"github.com/campus-ops/gatepass-api/pkg/response"
)

type approvalService interface {
	AdvisorDecide(ctx context.Context, requestID, actorID string, decision models.Decision, remarks string) (*models.GateRequest, error)
	HodDecide(ctx context.Context, requestID, actorID string, decision models.Decision, remarks string) (*models.GateRequest, error)
}

type approvalListService interface {
	ListForActor(ctx context.Context, actor *models.JWTClaims) ([]models.GateRequest, error)
}

// ApprovalHandler exposes the advisor and HOD review endpoints.
type ApprovalHandler struct {
	approvals approvalService
	listings  approvalListService
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(approvals approvalService, listings approvalListService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, listings: listings}
}

// List godoc
// @Summary List requests awaiting this approver's stage
// @Tags Approvals
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /advisor/requests [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	requests, err := h.listings.ListForActor(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests)
}

// AdvisorApprove godoc
// @Summary Approve a request as the class advisor
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest false "Optional remarks"
// @Success 200 {object} response.Envelope
// @Router /advisor/requests/{id}/approve [post]
func (h *ApprovalHandler) AdvisorApprove(c *gin.Context) {
	h.decide(c, models.DecisionApprove, h.approvals.AdvisorDecide)
}

// AdvisorReject godoc
// @Summary Reject a request as the class advisor
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest true "Rejection remarks (min 5 chars)"
// @Success 200 {object} response.Envelope
// @Router /advisor/requests/{id}/reject [post]
func (h *ApprovalHandler) AdvisorReject(c *gin.Context) {
	h.decide(c, models.DecisionReject, h.approvals.AdvisorDecide)
}

// HodApprove godoc
// @Summary Approve a request as the department head (issues the credential)
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest false "Optional remarks"
// @Success 200 {object} response.Envelope
// @Router /hod/requests/{id}/approve [post]
func (h *ApprovalHandler) HodApprove(c *gin.Context) {
	h.decide(c, models.DecisionApprove, h.approvals.HodDecide)
}

// HodReject godoc
// @Summary Reject a request as the department head
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest true "Rejection remarks (min 5 chars)"
// @Success 200 {object} response.Envelope
// @Router /hod/requests/{id}/reject [post]
func (h *ApprovalHandler) HodReject(c *gin.Context) {
	h.decide(c, models.DecisionReject, h.approvals.HodDecide)
}

type decideFunc func(ctx context.Context, requestID, actorID string, decision models.Decision, remarks string) (*models.GateRequest, error)

func (h *ApprovalHandler) decide(c *gin.Context, decision models.Decision, decide decideFunc) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.DecisionRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
			return
		}
	}

	request, err := decide(c.Request.Context(), c.Param("id"), claims.UserID, decision, req.Remarks)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request)
}
