package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-ops/gatepass-api/internal/models"
	"github.com/campus-ops/gatepass-api/internal/repository"
	appErrors "github.com/campus-ops/gatepass-api/pkg/errors"
)

const minRejectionRemarks = 5

const defaultApprovalRemarks = "Approved"

type approvalRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.GateRequest, error)
	ApplyStageDecision(ctx context.Context, params repository.StageDecisionParams) error
}

type listInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type decisionObserver interface {
	ObserveDecision(stage, outcome string)
}

// ApprovalService is the transition authority for the two-stage
// approval pipeline. The HOD approval path doubles as the credential
// issuer: the token is minted and written with the state transition in
// one guarded update.
type ApprovalService struct {
	repo     approvalRequestStore
	cache    listInvalidator
	metrics  decisionObserver
	logger   *zap.Logger
	now      func() time.Time
	newToken func() string
}

// ApprovalServiceOption configures the service.
type ApprovalServiceOption func(*ApprovalService)

// WithApprovalClock overrides the time source.
func WithApprovalClock(now func() time.Time) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenGenerator overrides credential minting.
func WithTokenGenerator(gen func() string) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if gen != nil {
			s.newToken = gen
		}
	}
}

// WithDecisionObserver attaches decision metrics.
func WithDecisionObserver(obs decisionObserver) ApprovalServiceOption {
	return func(s *ApprovalService) {
		s.metrics = obs
	}
}

// NewApprovalService constructs the service with defaults.
func NewApprovalService(repo approvalRequestStore, cache listInvalidator, logger *zap.Logger, opts ...ApprovalServiceOption) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ApprovalService{
		repo:     repo,
		cache:    cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// AdvisorDecide records the class advisor's verdict. Approval forwards
// the request to the HOD stage; rejection is terminal.
func (s *ApprovalService) AdvisorDecide(ctx context.Context, requestID, actorID string, decision models.Decision, remarks string) (*models.GateRequest, error) {
	remarks = strings.TrimSpace(remarks)
	if err := validateDecision(decision, remarks); err != nil {
		return nil, err
	}

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.AdvisorID == nil || *request.AdvisorID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to decide this request")
	}
	if request.Status != models.StatusPendingAdvisor {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("request is not awaiting advisor review (current status: %s)", request.Status))
	}

	params := repository.StageDecisionParams{
		ID:       request.ID,
		Stage:    repository.StageAdvisor,
		ActionAt: s.now(),
	}
	if decision == models.DecisionApprove {
		params.NewStatus = models.StatusPendingHod
		params.StageStatus = models.StageApproved
		params.Remarks = orDefault(remarks, defaultApprovalRemarks)
	} else {
		params.NewStatus = models.StatusRejected
		params.StageStatus = models.StageRejected
		params.Remarks = remarks
	}

	if err := s.applyDecision(ctx, params); err != nil {
		return nil, err
	}

	request.Status = params.NewStatus
	request.AdvisorStatus = params.StageStatus
	request.AdvisorRemarks = &params.Remarks
	request.AdvisorActionAt = &params.ActionAt

	s.observe("advisor", string(decision))
	s.invalidateListings(ctx)
	s.logger.Info("advisor decision recorded",
		zap.String("request_id", request.ID),
		zap.String("decision", string(decision)))

	sanitized := request.Sanitized()
	return &sanitized, nil
}

// HodDecide records the department head's verdict. Approval is terminal
// for the pipeline and issues the single-use credential atomically with
// the transition; rejection is terminal without a credential.
func (s *ApprovalService) HodDecide(ctx context.Context, requestID, actorID string, decision models.Decision, remarks string) (*models.GateRequest, error) {
	remarks = strings.TrimSpace(remarks)
	if err := validateDecision(decision, remarks); err != nil {
		return nil, err
	}

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.HodID == nil || *request.HodID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not authorized to decide this request")
	}
	if request.Status != models.StatusPendingHod {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("request is not awaiting HOD review (current status: %s)", request.Status))
	}

	params := repository.StageDecisionParams{
		ID:       request.ID,
		Stage:    repository.StageHod,
		ActionAt: s.now(),
	}
	if decision == models.DecisionApprove {
		token := s.newToken()
		params.NewStatus = models.StatusApproved
		params.StageStatus = models.StageApproved
		params.Remarks = orDefault(remarks, defaultApprovalRemarks)
		params.QRToken = &token
	} else {
		params.NewStatus = models.StatusRejected
		params.StageStatus = models.StageRejected
		params.Remarks = remarks
	}

	if err := s.applyDecision(ctx, params); err != nil {
		return nil, err
	}

	request.Status = params.NewStatus
	request.HodStatus = params.StageStatus
	request.HodRemarks = &params.Remarks
	request.HodActionAt = &params.ActionAt
	request.QRToken = params.QRToken

	s.observe("hod", string(decision))
	s.invalidateListings(ctx)
	s.logger.Info("hod decision recorded",
		zap.String("request_id", request.ID),
		zap.String("decision", string(decision)))

	// The approval confirmation carries the freshly minted token; it is
	// the one approver-facing response allowed to show it.
	return request, nil
}

func (s *ApprovalService) loadRequest(ctx context.Context, id string) (*models.GateRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

func (s *ApprovalService) applyDecision(ctx context.Context, params repository.StageDecisionParams) error {
	if err := s.repo.ApplyStageDecision(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the guarded update: the stage was decided between our
			// read and write. Stage decisions are write-once, so report
			// the state conflict instead of retrying.
			return appErrors.Clone(appErrors.ErrInvalidState, "request was already decided")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}
	return nil
}

func (s *ApprovalService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "gatepass:list:*"); err != nil {
		s.logger.Warn("failed to invalidate listing cache", zap.Error(err))
	}
}

func (s *ApprovalService) observe(stage, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveDecision(stage, outcome)
	}
}

func validateDecision(decision models.Decision, remarks string) error {
	switch decision {
	case models.DecisionApprove:
		return nil
	case models.DecisionReject:
		if len(remarks) < minRejectionRemarks {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("rejection remarks are required (min %d characters)", minRejectionRemarks))
		}
		return nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, "decision must be approve or reject")
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
