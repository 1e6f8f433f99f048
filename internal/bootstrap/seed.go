package bootstrap

import (
	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Follow{},
		&entity.Block{},
		&entity.Post{},
		&entity.Comment{},
		&entity.Like{},
		&entity.SavedPost{},
		&entity.Product{},
		&entity.CartItem{},
		&entity.Order{},
		&entity.Subscription{},
		&entity.Report{},
		&entity.Warning{},
		&entity.Notification{},
	)
}

// SeedAdminUser creates the single ADMIN account when no admin exists yet.
func SeedAdminUser(db *gorm.DB, username, password string) (*entity.User, error) {
	var existing []entity.User
	if err := db.Where("role = ?", entity.RoleAdmin).Limit(1).Find(&existing).Error; err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		logger.Log.WithField("username", existing[0].Username).Debug("admin user already exists, skipping seed")
		return &existing[0], nil
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := entity.User{
		Username:     username,
		DisplayName:  "Administrator",
		PasswordHash: string(hashedPasswordBytes),
		Role:         entity.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return nil, err
	}

	logger.Log.WithField("username", username).Info("admin user seeded")
	return &admin, nil
}
