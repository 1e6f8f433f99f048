package repository

import (
	"context"

	"anoa.com/fandomspace/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ModerationRepository interface {
	WithTx(tx *gorm.DB) ModerationRepository

	// InsertReport reports false when the reporter already filed the same
	// (type, reference) report.
	InsertReport(ctx context.Context, report *entity.Report) (bool, error)
	ReportExists(ctx context.Context, reporterID uuid.UUID, kind string, referenceID uuid.UUID) (bool, error)
	FindReportByID(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	FindReports(ctx context.Context, status string) ([]entity.Report, error)
	CloseReport(ctx context.Context, id uuid.UUID, status string, adminID uuid.UUID) (bool, error)

	CreateWarning(ctx context.Context, warning *entity.Warning) error
	FindWarnings(ctx context.Context, userID uuid.UUID) ([]entity.Warning, error)

	UpdateUser(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) error
	// LiftExpiredSuspensions clears timed suspensions that ended before nowMs.
	LiftExpiredSuspensions(ctx context.Context, nowMs int64) (int64, error)
	// DeleteUser removes the account with its content and edges. Orders,
	// subscriptions and reports stay as the audit trail. It returns the image
	// URLs that belonged to removed posts and products.
	DeleteUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type moderationRepository struct {
	db *gorm.DB
}

func NewModerationRepository(db *gorm.DB) ModerationRepository {
	return &moderationRepository{db: db}
}

func (r *moderationRepository) WithTx(tx *gorm.DB) ModerationRepository {
	return &moderationRepository{db: tx}
}

func (r *moderationRepository) InsertReport(ctx context.Context, report *entity.Report) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(report)
	return res.RowsAffected > 0, res.Error
}

func (r *moderationRepository) ReportExists(ctx context.Context, reporterID uuid.UUID, kind string, referenceID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Report{}).
		Where("reporter_id = ? AND type = ? AND reference_id = ?", reporterID, kind, referenceID).
		Count(&count).Error
	return count > 0, err
}

func (r *moderationRepository) FindReportByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	var report entity.Report
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *moderationRepository) FindReports(ctx context.Context, status string) ([]entity.Report, error) {
	reports := []entity.Report{}
	query := r.db.WithContext(ctx).Order("created_at desc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&reports).Error
	return reports, err
}

func (r *moderationRepository) CloseReport(ctx context.Context, id uuid.UUID, status string, adminID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.Report{}).
		Where("id = ? AND status = ?", id, entity.ReportStatusPending).
		Updates(map[string]interface{}{"status": status, "resolved_by": adminID})
	return res.RowsAffected > 0, res.Error
}

func (r *moderationRepository) CreateWarning(ctx context.Context, warning *entity.Warning) error {
	return r.db.WithContext(ctx).Create(warning).Error
}

func (r *moderationRepository) FindWarnings(ctx context.Context, userID uuid.UUID) ([]entity.Warning, error) {
	warnings := []entity.Warning{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&warnings).Error
	return warnings, err
}

func (r *moderationRepository) UpdateUser(ctx context.Context, userID uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", userID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *moderationRepository) LiftExpiredSuspensions(ctx context.Context, nowMs int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("is_suspended = ? AND suspension_permanent = ? AND suspended_until < ?", true, false, nowMs).
		Updates(map[string]interface{}{
			"is_suspended":      false,
			"suspended_until":   0,
			"suspension_reason": "",
		})
	return res.RowsAffected, res.Error
}

func (r *moderationRepository) DeleteUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	db := r.db.WithContext(ctx)

	var posts []entity.Post
	if err := db.Select("id", "images").
		Where("author_id = ? OR artist_id = ?", userID, userID).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	var products []entity.Product
	if err := db.Select("id", "images").Where("artist_id = ?", userID).Find(&products).Error; err != nil {
		return nil, err
	}

	var images []string
	postIDs := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		images = append(images, p.Images...)
	}
	productIDs := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
		images = append(images, p.Images...)
	}

	// Comment like caches must not count the user's likes any more.
	likedComments := db.Model(&entity.Like{}).Select("reference_id").
		Where("user_id = ? AND reference_type = ?", userID, entity.LikeTargetComment)
	if err := db.Model(&entity.Comment{}).
		Where("id IN (?)", likedComments).
		UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
		return nil, err
	}

	// Replies by others under the user's comments go with them.
	var threads []entity.Comment
	if err := db.Select("id", "user_id", "parent_id").
		Where("post_id IN (?)", db.Model(&entity.Comment{}).Select("post_id").Where("user_id = ?", userID)).
		Find(&threads).Error; err != nil {
		return nil, err
	}
	ownComments := withReplies(threads, userID)

	commentIDs := db.Model(&entity.Comment{}).Select("id").
		Where("id IN ? OR post_id IN ?", nonEmpty(ownComments), nonEmpty(postIDs))
	steps := []struct {
		model interface{}
		query string
		args  []interface{}
	}{
		{&entity.Like{}, "user_id = ?", []interface{}{userID}},
		{&entity.Like{}, "reference_type = ? AND reference_id IN (?)", []interface{}{entity.LikeTargetComment, commentIDs}},
		{&entity.Like{}, "reference_type = ? AND reference_id IN ?", []interface{}{entity.LikeTargetPost, nonEmpty(postIDs)}},
		{&entity.Comment{}, "id IN ? OR post_id IN ?", []interface{}{nonEmpty(ownComments), nonEmpty(postIDs)}},
		{&entity.SavedPost{}, "user_id = ? OR post_id IN ?", []interface{}{userID, nonEmpty(postIDs)}},
		{&entity.Post{}, "id IN ?", []interface{}{nonEmpty(postIDs)}},
		{&entity.CartItem{}, "user_id = ? OR product_id IN ?", []interface{}{userID, nonEmpty(productIDs)}},
		{&entity.Product{}, "artist_id = ?", []interface{}{userID}},
		{&entity.Follow{}, "follower_id = ? OR followee_id = ?", []interface{}{userID, userID}},
		{&entity.Block{}, "blocker_id = ? OR blocked_id = ?", []interface{}{userID, userID}},
		{&entity.Notification{}, "user_id = ? OR actor_id = ?", []interface{}{userID, userID}},
		{&entity.Warning{}, "user_id = ?", []interface{}{userID}},
		{&entity.User{}, "id = ?", []interface{}{userID}},
	}
	for _, step := range steps {
		if err := db.Where(step.query, step.args...).Delete(step.model).Error; err != nil {
			return nil, err
		}
	}
	return images, nil
}

// withReplies returns the comments written by userID and every reply below them.
func withReplies(comments []entity.Comment, userID uuid.UUID) []uuid.UUID {
	children := make(map[uuid.UUID][]uuid.UUID)
	var queue []uuid.UUID
	for _, c := range comments {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
		if c.UserID == userID {
			queue = append(queue, c.ID)
		}
	}

	seen := make(map[uuid.UUID]bool, len(queue))
	ids := make([]uuid.UUID, 0, len(queue))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		queue = append(queue, children[id]...)
	}
	return ids
}

// nonEmpty keeps "IN ?" valid SQL when there is nothing to match.
func nonEmpty(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return []uuid.UUID{uuid.Nil}
	}
	return ids
}
