package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/moderation/dto"
	"anoa.com/fandomspace/internal/modules/moderation/repository"
	notifService "anoa.com/fandomspace/internal/modules/notification/service"
	"anoa.com/fandomspace/internal/modules/policy"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/logger"
	"anoa.com/fandomspace/pkg/ratelimiter"
	"anoa.com/fandomspace/pkg/storage"
	"anoa.com/fandomspace/pkg/validator"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ModerationService interface {
	// ReportUser files a report and returns false, without error, when the
	// reporter already reported the same content.
	ReportUser(ctx context.Context, reporterID uuid.UUID, input dto.ReportInput) (bool, error)
	ResolveReport(ctx context.Context, adminID, reportID uuid.UUID, status string) (*entity.Report, error)
	GetReports(ctx context.Context, adminID uuid.UUID, status string) ([]entity.Report, error)
	ObserveReports(ctx context.Context, adminID uuid.UUID, status string) (*live.Subscription[[]entity.Report], error)

	WarnUserDirect(ctx context.Context, adminID, userID uuid.UUID, reason string) (*entity.Warning, error)
	GetWarnings(ctx context.Context, userID uuid.UUID) ([]entity.Warning, error)
	ObserveWarnings(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]entity.Warning], error)

	SuspendUserDirect(ctx context.Context, adminID, userID uuid.UUID, duration time.Duration, reason string) (*entity.User, error)
	SuspendUserPermanently(ctx context.Context, adminID, userID uuid.UUID, reason string) (*entity.User, error)
	UnsuspendUser(ctx context.Context, adminID, userID uuid.UUID) (*entity.User, error)
	// SweepExpiredSuspensions clears every timed suspension that ended before now.
	SweepExpiredSuspensions(ctx context.Context, now time.Time) (int64, error)

	DeleteUserDirect(ctx context.Context, adminID, userID uuid.UUID) error
}

type moderationService struct {
	db           *gorm.DB
	repo         repository.ModerationRepository
	limiter      *ratelimiter.Limiter
	reportLimit  time.Duration
	imageStorage storage.ImageStorage
	notification notifService.NotificationService
	hub          *live.Hub
	policy       *policy.Policy
}

func NewModerationService(db *gorm.DB, repo repository.ModerationRepository, limiter *ratelimiter.Limiter, reportLimit time.Duration, imageStorage storage.ImageStorage, notification notifService.NotificationService, hub *live.Hub, clock func() time.Time) ModerationService {
	return &moderationService{
		db:           db,
		repo:         repo,
		limiter:      limiter,
		reportLimit:  reportLimit,
		imageStorage: imageStorage,
		notification: notification,
		hub:          hub,
		policy:       policy.New(clock),
	}
}

func (s *moderationService) ReportUser(ctx context.Context, reporterID uuid.UUID, input dto.ReportInput) (bool, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	if err := validator.Struct(input); err != nil {
		return false, err
	}

	var submitted, reserved bool
	defer func() {
		if reserved && !submitted {
			_ = s.limiter.Clear(ctx, reporterID, "report")
		}
	}()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reporter, err := s.policy.Actor(ctx, tx, reporterID)
		if err != nil {
			return err
		}
		target, err := loadTarget(ctx, tx, input.Type, input.ReferenceID)
		if err != nil {
			return err
		}
		if target.reportedID == reporterID {
			return fmt.Errorf("cannot report yourself: %w", apperror.ErrInvalidOperation)
		}

		if target.artistID != uuid.Nil && !reporter.IsAdmin() && reporterID != target.artistID {
			following, err := policy.IsFollowing(ctx, tx, reporterID, target.artistID)
			if err != nil {
				return err
			}
			if !following {
				return fmt.Errorf("follow the artist to report their space: %w", apperror.ErrPermissionDenied)
			}
		}

		repo := s.repo.WithTx(tx)
		exists, err := repo.ReportExists(ctx, reporterID, input.Type, input.ReferenceID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		// The cooldown is only spent on reports that are actually filed.
		if err := s.limiter.Allow(ctx, reporterID, "report", s.reportLimit); err != nil {
			return err
		}
		reserved = true
		submitted, err = repo.InsertReport(ctx, &entity.Report{
			ReporterID:      reporterID,
			ReportedID:      target.reportedID,
			Type:            input.Type,
			ReferenceID:     input.ReferenceID,
			Reason:          input.Reason,
			Description:     input.Description,
			ContentSnapshot: target.snapshot,
			Status:          entity.ReportStatusPending,
		})
		return err
	})
	if err != nil {
		submitted = false
		return false, err
	}

	if submitted {
		s.hub.Notify(entity.TableReports)
	}
	return submitted, nil
}

type reportTarget struct {
	reportedID uuid.UUID
	artistID   uuid.UUID // space whose follow gate applies, Nil for none
	snapshot   string
}

// loadTarget resolves who is being reported and freezes what they wrote.
func loadTarget(ctx context.Context, tx *gorm.DB, kind string, id uuid.UUID) (*reportTarget, error) {
	db := tx.WithContext(ctx)
	switch kind {
	case entity.ReportPost:
		var post entity.Post
		if err := db.Where("id = ?", id).First(&post).Error; err != nil {
			return nil, notFound(err, "post")
		}
		return &reportTarget{reportedID: post.AuthorID, artistID: post.ArtistID, snapshot: post.Content}, nil
	case entity.ReportComment:
		var comment entity.Comment
		if err := db.Where("id = ?", id).First(&comment).Error; err != nil {
			return nil, notFound(err, "comment")
		}
		var post entity.Post
		if err := db.Where("id = ?", comment.PostID).First(&post).Error; err != nil {
			return nil, notFound(err, "post")
		}
		return &reportTarget{reportedID: comment.UserID, artistID: post.ArtistID, snapshot: comment.Content}, nil
	case entity.ReportProduct:
		var product entity.Product
		if err := db.Where("id = ?", id).First(&product).Error; err != nil {
			return nil, notFound(err, "product")
		}
		snapshot := product.Name
		if product.Description != "" {
			snapshot += "\n" + product.Description
		}
		return &reportTarget{reportedID: product.ArtistID, artistID: product.ArtistID, snapshot: snapshot}, nil
	case entity.ReportUser, entity.ReportFandom:
		user, err := policy.LoadUser(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		target := &reportTarget{reportedID: user.ID, snapshot: user.DisplayName}
		if user.Bio != nil && *user.Bio != "" {
			target.snapshot += "\n" + *user.Bio
		}
		if kind == entity.ReportFandom {
			if !user.IsArtist() {
				return nil, fmt.Errorf("%s has no fandom space: %w", user.Username, apperror.ErrInvalidOperation)
			}
			target.artistID = user.ID
		}
		return target, nil
	}
	return nil, fmt.Errorf("unknown report type %q: %w", kind, apperror.ErrInvalidInput)
}

func (s *moderationService) ResolveReport(ctx context.Context, adminID, reportID uuid.UUID, status string) (*entity.Report, error) {
	if status != entity.ReportStatusResolved && status != entity.ReportStatusDismissed {
		return nil, fmt.Errorf("report can only be resolved or dismissed: %w", apperror.ErrInvalidInput)
	}

	var report *entity.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.policy.Admin(ctx, tx, adminID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindReportByID(ctx, reportID); err != nil {
			return notFound(err, "report")
		}
		closed, err := repo.CloseReport(ctx, reportID, status, adminID)
		if err != nil {
			return err
		}
		if !closed {
			return fmt.Errorf("report is already closed: %w", apperror.ErrInvalidTransition)
		}
		report, err = repo.FindReportByID(ctx, reportID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableReports)
	return report, nil
}

func (s *moderationService) GetReports(ctx context.Context, adminID uuid.UUID, status string) ([]entity.Report, error) {
	if _, err := s.policy.Admin(ctx, s.db, adminID); err != nil {
		return nil, err
	}
	return s.repo.FindReports(ctx, status)
}

func (s *moderationService) ObserveReports(ctx context.Context, adminID uuid.UUID, status string) (*live.Subscription[[]entity.Report], error) {
	if _, err := s.policy.Admin(ctx, s.db, adminID); err != nil {
		return nil, err
	}
	return live.Observe(ctx, s.hub, []string{entity.TableReports}, func(ctx context.Context) ([]entity.Report, error) {
		return s.repo.FindReports(ctx, status)
	})
}

func (s *moderationService) WarnUserDirect(ctx context.Context, adminID, userID uuid.UUID, reason string) (*entity.Warning, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("a warning needs a reason: %w", apperror.ErrInvalidInput)
	}

	warning := &entity.Warning{UserID: userID, AdminID: adminID, Reason: reason}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.moderationTarget(ctx, tx, adminID, userID); err != nil {
			return err
		}
		return s.repo.WithTx(tx).CreateWarning(ctx, warning)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableWarnings)
	notifService.Send(ctx, s.notification, &entity.Notification{
		UserID:     userID,
		ActorID:    adminID,
		EntityID:   warning.ID,
		EntityType: "warning",
		Type:       entity.NotifyWarning,
		Message:    "You received a warning: " + reason,
	})
	return warning, nil
}

func (s *moderationService) GetWarnings(ctx context.Context, userID uuid.UUID) ([]entity.Warning, error) {
	return s.repo.FindWarnings(ctx, userID)
}

func (s *moderationService) ObserveWarnings(ctx context.Context, userID uuid.UUID) (*live.Subscription[[]entity.Warning], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableWarnings}, func(ctx context.Context) ([]entity.Warning, error) {
		return s.repo.FindWarnings(ctx, userID)
	})
}

func (s *moderationService) SuspendUserDirect(ctx context.Context, adminID, userID uuid.UUID, duration time.Duration, reason string) (*entity.User, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("suspension needs a positive duration: %w", apperror.ErrInvalidInput)
	}
	return s.suspend(ctx, adminID, userID, map[string]interface{}{
		"is_suspended":         true,
		"suspended_until":      s.policy.NowMs() + duration.Milliseconds(),
		"suspension_permanent": false,
		"suspension_reason":    strings.TrimSpace(reason),
	})
}

func (s *moderationService) SuspendUserPermanently(ctx context.Context, adminID, userID uuid.UUID, reason string) (*entity.User, error) {
	return s.suspend(ctx, adminID, userID, map[string]interface{}{
		"is_suspended":         true,
		"suspended_until":      0,
		"suspension_permanent": true,
		"suspension_reason":    strings.TrimSpace(reason),
	})
}

func (s *moderationService) suspend(ctx context.Context, adminID, userID uuid.UUID, fields map[string]interface{}) (*entity.User, error) {
	var user *entity.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.moderationTarget(ctx, tx, adminID, userID); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).UpdateUser(ctx, userID, fields); err != nil {
			return err
		}
		var err error
		user, err = policy.LoadUser(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableUsers)
	notifService.Send(ctx, s.notification, &entity.Notification{
		UserID:     userID,
		ActorID:    adminID,
		EntityID:   userID,
		EntityType: "user",
		Type:       entity.NotifySuspension,
		Message:    "Your account has been suspended",
	})
	return user, nil
}

func (s *moderationService) UnsuspendUser(ctx context.Context, adminID, userID uuid.UUID) (*entity.User, error) {
	var user *entity.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.moderationTarget(ctx, tx, adminID, userID); err != nil {
			return err
		}
		err := s.repo.WithTx(tx).UpdateUser(ctx, userID, map[string]interface{}{
			"is_suspended":         false,
			"suspended_until":      0,
			"suspension_permanent": false,
			"suspension_reason":    "",
		})
		if err != nil {
			return err
		}
		user, err = policy.LoadUser(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableUsers)
	return user, nil
}

func (s *moderationService) SweepExpiredSuspensions(ctx context.Context, now time.Time) (int64, error) {
	lifted, err := s.repo.LiftExpiredSuspensions(ctx, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	if lifted > 0 {
		s.hub.Notify(entity.TableUsers)
		logger.Log.WithField("count", lifted).Info("lifted expired suspensions")
	}
	return lifted, nil
}

func (s *moderationService) DeleteUserDirect(ctx context.Context, adminID, userID uuid.UUID) error {
	var images []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.moderationTarget(ctx, tx, adminID, userID); err != nil {
			return err
		}
		var err error
		images, err = s.repo.WithTx(tx).DeleteUser(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}

	s.hub.Notify(
		entity.TableUsers, entity.TableFollows, entity.TableBlocks, entity.TablePosts,
		entity.TableComments, entity.TableLikes, entity.TableSavedPosts, entity.TableProducts,
		entity.TableCartItems, entity.TableNotifications, entity.TableWarnings,
	)
	for _, err := range storage.DeleteAll(ctx, s.imageStorage, images) {
		logger.Log.WithError(err).WithFields(logrus.Fields{"user_id": userID}).Warn("failed to delete image of removed user")
	}
	return nil
}

// moderationTarget checks the admin and loads the user they act on. Admins
// are never moderated, including by themselves.
func (s *moderationService) moderationTarget(ctx context.Context, tx *gorm.DB, adminID, userID uuid.UUID) (*entity.User, error) {
	if _, err := s.policy.Admin(ctx, tx, adminID); err != nil {
		return nil, err
	}
	if adminID == userID {
		return nil, fmt.Errorf("cannot moderate yourself: %w", apperror.ErrInvalidOperation)
	}
	user, err := policy.LoadUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return nil, fmt.Errorf("admins cannot be moderated: %w", apperror.ErrInvalidOperation)
	}
	return user, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, apperror.ErrNotFound)
	}
	return err
}
