package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/campus-ops/gatepass-api/internal/models"
	appErrors "github.com/campus-ops/gatepass-api/pkg/errors"
)

type directoryUserStore interface {
	FindAdvisorFor(ctx context.Context, department, year, section string) (*models.User, error)
	FindHodFor(ctx context.Context, department string) (*models.User, error)
}

// DirectoryService resolves the gatekeepers for a requester's class.
// Resolution happens once, at registration; later reassignment never
// touches in-flight requests.
type DirectoryService struct {
	users  directoryUserStore
	logger *zap.Logger
}

// NewDirectoryService constructs the service.
func NewDirectoryService(users directoryUserStore, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{users: users, logger: logger}
}

// ResolveAssignment looks up the advisor for (department, year, section)
// and the HOD for department. A missing match yields a nil id, not an
// error: the request will sit in its pending state until staff is seeded.
func (s *DirectoryService) ResolveAssignment(ctx context.Context, department, year, section string) (models.Assignment, error) {
	assignment := models.Assignment{}

	advisor, err := s.users.FindAdvisorFor(ctx, department, year, section)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return assignment, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve advisor")
		}
		s.logger.Info("no advisor found for class",
			zap.String("department", department), zap.String("year", year), zap.String("section", section))
	} else {
		assignment.AdvisorID = &advisor.ID
	}

	hod, err := s.users.FindHodFor(ctx, department)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return assignment, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve department head")
		}
		s.logger.Info("no hod found for department", zap.String("department", department))
	} else {
		assignment.HodID = &hod.ID
	}

	return assignment, nil
}
