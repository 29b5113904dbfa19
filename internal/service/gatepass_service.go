package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-ops/gatepass-api/internal/dto"
	"github.com/campus-ops/gatepass-api/internal/models"
	appErrors "github.com/campus-ops/gatepass-api/pkg/errors"
)

type gatePassRequestStore interface {
	Create(ctx context.Context, request *models.GateRequest) error
	GetByID(ctx context.Context, id string) (*models.GateRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.GateRequest, error)
}

type gatePassUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type listingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// GatePassService handles request creation and the role-scoped listing
// projections. The requester snapshot and the gatekeeper routing are
// copied from the student record at creation time and never revisited.
type GatePassService struct {
	requests  gatePassRequestStore
	users     gatePassUserStore
	cache     listingCache
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cacheTTL  time.Duration
}

// GatePassServiceOption configures the service.
type GatePassServiceOption func(*GatePassService)

// WithGatePassClock overrides the time source.
func WithGatePassClock(now func() time.Time) GatePassServiceOption {
	return func(s *GatePassService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithListingCache attaches the Redis-backed listing cache.
func WithListingCache(cache listingCache, ttl time.Duration) GatePassServiceOption {
	return func(s *GatePassService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewGatePassService constructs the service with defaults.
func NewGatePassService(requests gatePassRequestStore, users gatePassUserStore, logger *zap.Logger, opts ...GatePassServiceOption) *GatePassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &GatePassService{
		requests:  requests,
		users:     users,
		validator: validator.New(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		cacheTTL:  time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create submits a new gate pass request for the authenticated student.
func (s *GatePassService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateGatePassRequest) (*models.GateRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit gate pass requests")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "all fields are required and reason must be at least 10 characters")
	}

	student, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	request := &models.GateRequest{
		StudentID:    student.ID,
		StudentName:  student.FullName,
		StudentEmail: student.Email,
		RollNumber:   student.RollNumber,
		Department:   student.Department,
		Year:         student.Year,
		Section:      student.Section,

		Reason:             req.Reason,
		Destination:        req.Destination,
		ExitDate:           req.ExitDate,
		ExpectedReturnDate: req.ExpectedReturnDate,
		ContactNumber:      req.ContactNumber,

		Status:        models.StatusPendingAdvisor,
		AdvisorID:     student.AssignedAdvisorID,
		AdvisorStatus: models.StagePending,
		HodID:         student.AssignedHodID,
		HodStatus:     models.StagePending,

		CreatedAt: s.now(),
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create gate pass request")
	}

	s.invalidateListings(ctx)
	s.logger.Info("gate pass request created",
		zap.String("request_id", request.ID),
		zap.String("student", request.RollNumber))

	return request, nil
}

// ListForActor returns the requests visible to the actor's role:
// students see their own history, approvers see only the requests
// currently awaiting their stage, without the credential.
func (s *GatePassService) ListForActor(ctx context.Context, actor *models.JWTClaims) ([]models.GateRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	var filter models.RequestFilter
	sanitize := false
	switch actor.Role {
	case models.RoleStudent:
		filter = models.RequestFilter{StudentID: actor.UserID}
	case models.RoleAdvisor:
		filter = models.RequestFilter{AdvisorID: actor.UserID, Status: []models.RequestStatus{models.StatusPendingAdvisor}}
		sanitize = true
	case models.RoleHod:
		filter = models.RequestFilter{HodID: actor.UserID, Status: []models.RequestStatus{models.StatusPendingHod}}
		sanitize = true
	default:
		return nil, appErrors.ErrForbidden
	}

	cacheKey := fmt.Sprintf("gatepass:list:%s:%s", actor.Role, actor.UserID)
	if s.cache != nil {
		var cached []models.GateRequest
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	if sanitize {
		for i := range requests {
			requests[i] = requests[i].Sanitized()
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, requests, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache listing", zap.Error(err))
		}
	}

	return requests, nil
}

// GetOwned loads a request and verifies the actor is its requester.
// NotFound is returned for foreign requests so ownership is not leaked.
func (s *GatePassService) GetOwned(ctx context.Context, actor *models.JWTClaims, requestID string) (*models.GateRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
	}
	return request, nil
}

func (s *GatePassService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "gatepass:list:*"); err != nil {
		s.logger.Warn("failed to invalidate listing cache", zap.Error(err))
	}
}
