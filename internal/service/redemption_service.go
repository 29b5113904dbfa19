package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campus-ops/gatepass-api/internal/dto"
	"github.com/campus-ops/gatepass-api/internal/models"
	"github.com/campus-ops/gatepass-api/internal/repository"
	appErrors "github.com/campus-ops/gatepass-api/pkg/errors"
)

type redemptionRequestStore interface {
	GetByToken(ctx context.Context, token string) (*models.GateRequest, error)
	MarkUsed(ctx context.Context, params repository.MarkUsedParams) error
}

type scanLogStore interface {
	Create(ctx context.Context, log *models.ScanLog) error
	ListByScanner(ctx context.Context, scannerID string, limit int) ([]models.ScanLog, error)
}

type redemptionObserver interface {
	ObserveRedemption(result string)
}

// RedemptionService verifies presented credentials and consumes them
// exactly once. The consuming write goes through a compare-and-set on
// qr_used, so concurrent scans of the same token resolve to a single
// winner without a lock.
type RedemptionService struct {
	requests redemptionRequestStore
	scans    scanLogStore
	metrics  redemptionObserver
	logger   *zap.Logger
	now      func() time.Time
}

// RedemptionServiceOption configures the service.
type RedemptionServiceOption func(*RedemptionService)

// WithRedemptionClock overrides the time source.
func WithRedemptionClock(now func() time.Time) RedemptionServiceOption {
	return func(s *RedemptionService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRedemptionObserver attaches redemption metrics.
func WithRedemptionObserver(obs redemptionObserver) RedemptionServiceOption {
	return func(s *RedemptionService) {
		s.metrics = obs
	}
}

// NewRedemptionService constructs the service with defaults.
func NewRedemptionService(requests redemptionRequestStore, scans scanLogStore, logger *zap.Logger, opts ...RedemptionServiceOption) *RedemptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RedemptionService{
		requests: requests,
		scans:    scans,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Redeem validates a presented token and atomically marks it consumed.
// A token that matches no request yields a uniform invalid response; the
// caller cannot distinguish a wrong token from someone else's token.
func (s *RedemptionService) Redeem(ctx context.Context, token string, scanner *models.JWTClaims) (*dto.RedemptionResult, error) {
	if scanner == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "qr token is required")
	}

	request, err := s.requests.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observe("invalid")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invalid qr code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up qr code")
	}

	if request.QRUsed {
		s.observe("already_used")
		return nil, alreadyUsedError(request.UsedAt)
	}
	if request.Status != models.StatusApproved {
		s.observe("not_approved")
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("request is not approved (current status: %s)", request.Status))
	}

	scannedAt := s.now()
	err = s.requests.MarkUsed(ctx, repository.MarkUsedParams{
		ID:     request.ID,
		UsedAt: scannedAt,
		UsedBy: scanner.UserID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the compare-and-set: a concurrent scan consumed the
			// token first. Re-read once to report the original usage time,
			// never retry the mutation.
			return nil, s.reportLostRace(ctx, token)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume gate pass")
	}

	scanLog := &models.ScanLog{
		RequestID:     request.ID,
		StudentID:     request.StudentID,
		StudentName:   request.StudentName,
		RollNumber:    request.RollNumber,
		ScannedBy:     scanner.UserID,
		ScannedByName: scanner.FullName,
		ScanTime:      scannedAt,
	}
	if err := s.scans.Create(ctx, scanLog); err != nil {
		// The redemption itself completed durably; a lost audit row is
		// logged loudly rather than failing the checkpoint.
		s.logger.Error("failed to append scan log",
			zap.String("request_id", request.ID), zap.Error(err))
	}

	s.observe("ok")
	s.logger.Info("gate pass redeemed",
		zap.String("request_id", request.ID),
		zap.String("student", request.RollNumber),
		zap.String("scanned_by", scanner.UserID))

	return &dto.RedemptionResult{
		RequestID: request.ID,
		Student: dto.StudentSummary{
			Name:       request.StudentName,
			RollNumber: request.RollNumber,
			Department: request.Department,
			Year:       request.Year,
			Section:    request.Section,
		},
		Trip: dto.TripSummary{
			Reason:             request.Reason,
			Destination:        request.Destination,
			ExitDate:           request.ExitDate,
			ExpectedReturnDate: request.ExpectedReturnDate,
		},
		ScannedAt: scannedAt,
	}, nil
}

// ScanHistory returns the scanner's most recent redemptions.
func (s *RedemptionService) ScanHistory(ctx context.Context, scannerID string, limit int) ([]models.ScanLog, error) {
	logs, err := s.scans.ListByScanner(ctx, scannerID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scan history")
	}
	return logs, nil
}

func (s *RedemptionService) reportLostRace(ctx context.Context, token string) error {
	request, err := s.requests.GetByToken(ctx, token)
	if err != nil {
		s.observe("conflict")
		return appErrors.Clone(appErrors.ErrConflict, "gate pass was consumed concurrently")
	}
	if request.QRUsed {
		s.observe("already_used")
		return alreadyUsedError(request.UsedAt)
	}
	s.observe("conflict")
	return appErrors.Clone(appErrors.ErrConflict, "gate pass state changed concurrently")
}

func (s *RedemptionService) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveRedemption(result)
	}
}

func alreadyUsedError(usedAt *time.Time) error {
	if usedAt != nil {
		return appErrors.Clone(appErrors.ErrAlreadyUsed,
			fmt.Sprintf("gate pass already used at %s", usedAt.UTC().Format(time.RFC3339)))
	}
	return appErrors.ErrAlreadyUsed
}
