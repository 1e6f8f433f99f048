package service

import (
	"context"
	"fmt"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/policy"
	"anoa.com/fandomspace/internal/modules/stat/dto"
	"anoa.com/fandomspace/internal/modules/stat/repository"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/live"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MaxDays = 365
	topN    = 5
)

var dashboardTables = []string{
	entity.TableFollows, entity.TablePosts, entity.TableLikes,
	entity.TableComments, entity.TableOrders, entity.TableUsers,
}

type StatService interface {
	// GetArtistDashboard is visible to the artist and to admins.
	GetArtistDashboard(ctx context.Context, viewerID, artistID uuid.UUID, days int) (*dto.Dashboard, error)
	ObserveDashboard(ctx context.Context, viewerID, artistID uuid.UUID, days int) (*live.Subscription[*dto.Dashboard], error)
	GetPlatformSummary(ctx context.Context, adminID uuid.UUID) (*dto.PlatformSummary, error)
}

type statService struct {
	db     *gorm.DB
	repo   repository.StatRepository
	hub    *live.Hub
	policy *policy.Policy
	clock  func() time.Time
}

func NewStatService(db *gorm.DB, repo repository.StatRepository, hub *live.Hub, clock func() time.Time) StatService {
	if clock == nil {
		clock = time.Now
	}
	return &statService{
		db:     db,
		repo:   repo,
		hub:    hub,
		policy: policy.New(clock),
		clock:  clock,
	}
}

func (s *statService) authorize(ctx context.Context, viewerID, artistID uuid.UUID, days int) error {
	if days < 1 || days > MaxDays {
		return fmt.Errorf("days must be between 1 and %d: %w", MaxDays, apperror.ErrInvalidInput)
	}
	viewer, err := s.policy.Actor(ctx, s.db, viewerID)
	if err != nil {
		return err
	}
	if viewerID != artistID && !viewer.IsAdmin() {
		return fmt.Errorf("dashboard belongs to the artist: %w", apperror.ErrPermissionDenied)
	}
	artist, err := policy.LoadUser(ctx, s.db, artistID)
	if err != nil {
		return err
	}
	if !artist.IsArtist() {
		return fmt.Errorf("%s is not an artist: %w", artist.Username, apperror.ErrInvalidOperation)
	}
	return nil
}

func (s *statService) GetArtistDashboard(ctx context.Context, viewerID, artistID uuid.UUID, days int) (*dto.Dashboard, error) {
	if err := s.authorize(ctx, viewerID, artistID, days); err != nil {
		return nil, err
	}
	return s.dashboard(ctx, artistID, days)
}

func (s *statService) ObserveDashboard(ctx context.Context, viewerID, artistID uuid.UUID, days int) (*live.Subscription[*dto.Dashboard], error) {
	if err := s.authorize(ctx, viewerID, artistID, days); err != nil {
		return nil, err
	}
	return live.Observe(ctx, s.hub, dashboardTables, func(ctx context.Context) (*dto.Dashboard, error) {
		return s.dashboard(ctx, artistID, days)
	})
}

func (s *statService) dashboard(ctx context.Context, artistID uuid.UUID, days int) (*dto.Dashboard, error) {
	now := s.clock()
	since := WindowStart(now, days)

	var (
		in  Activity
		err error
	)
	if in.Follows, err = s.repo.FindFollows(ctx, artistID); err != nil {
		return nil, err
	}
	if in.Posts, err = s.repo.FindPostsSince(ctx, artistID, since); err != nil {
		return nil, err
	}
	if in.Likes, err = s.repo.FindPostLikesSince(ctx, artistID, since); err != nil {
		return nil, err
	}
	if in.Comments, err = s.repo.FindCommentsSince(ctx, artistID, since); err != nil {
		return nil, err
	}
	if in.Orders, err = s.repo.FindOrdersSince(ctx, artistID, since); err != nil {
		return nil, err
	}

	out := Aggregate(artistID, in, now, days, topN)
	ids := make([]uuid.UUID, 0, len(out.TopFans))
	for _, f := range out.TopFans {
		ids = append(ids, f.UserID)
	}
	names, err := s.repo.FindUsernames(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out.TopFans {
		out.TopFans[i].Username = names[out.TopFans[i].UserID]
	}
	return &out, nil
}

func (s *statService) GetPlatformSummary(ctx context.Context, adminID uuid.UUID) (*dto.PlatformSummary, error) {
	if _, err := s.policy.Admin(ctx, s.db, adminID); err != nil {
		return nil, err
	}
	return s.repo.Summary(ctx)
}
