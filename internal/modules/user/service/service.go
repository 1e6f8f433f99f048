package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/fandomspace/internal/entity"
	notifService "anoa.com/fandomspace/internal/modules/notification/service"
	"anoa.com/fandomspace/internal/modules/policy"
	"anoa.com/fandomspace/internal/modules/user/dto"
	"anoa.com/fandomspace/internal/modules/user/repository"
	"anoa.com/fandomspace/pkg/apperror"
	"anoa.com/fandomspace/pkg/live"
	"anoa.com/fandomspace/pkg/storage"
	"anoa.com/fandomspace/pkg/validator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*entity.User, error)
	Login(ctx context.Context, input dto.LoginInput) (*entity.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	ObserveUser(ctx context.Context, id uuid.UUID) (*live.Subscription[*entity.User], error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileInput, avatar *dto.AvatarFile) (*entity.User, error)
	ApproveArtist(ctx context.Context, adminID, userID uuid.UUID) (*entity.User, error)
	RevertToFan(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	UpdateFandomSettings(ctx context.Context, artistID uuid.UUID, input dto.FandomSettingsInput) (*entity.User, error)
	ListArtists(ctx context.Context) ([]entity.User, error)
	ObserveArtists(ctx context.Context) (*live.Subscription[[]entity.User], error)
}

type userService struct {
	db           *gorm.DB
	repo         repository.UserRepository
	imageStorage storage.ImageStorage
	notification notifService.NotificationService
	hub          *live.Hub
	policy       *policy.Policy
}

func NewUserService(db *gorm.DB, repo repository.UserRepository, imageStorage storage.ImageStorage, notification notifService.NotificationService, hub *live.Hub, clock func() time.Time) UserService {
	return &userService{
		db:           db,
		repo:         repo,
		imageStorage: imageStorage,
		notification: notification,
		hub:          hub,
		policy:       policy.New(clock),
	}
}

func (s *userService) Register(ctx context.Context, input dto.RegisterInput) (*entity.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := validator.Struct(input); err != nil {
		return nil, err
	}
	if strings.ContainsAny(input.Username, " \t\n") {
		return nil, fmt.Errorf("username must not contain spaces: %w", apperror.ErrInvalidInput)
	}

	if _, err := s.repo.FindByUsername(ctx, input.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", apperror.ErrInvalidOperation)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := input.DisplayName
	if displayName == "" {
		displayName = input.Username
	}

	user := &entity.User{
		Username:     input.Username,
		DisplayName:  displayName,
		PasswordHash: string(hashed),
		Role:         entity.RoleFan,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.hub.Notify(entity.TableUsers)
	return user, nil
}

// Login resolves credentials to a user. Session tokens are the caller's concern.
func (s *userService) Login(ctx context.Context, input dto.LoginInput) (*entity.User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)
	}

	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// ObserveUser yields nil while the user does not exist.
func (s *userService) ObserveUser(ctx context.Context, id uuid.UUID) (*live.Subscription[*entity.User], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableUsers}, func(ctx context.Context) (*entity.User, error) {
		user, err := s.repo.FindByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return user, err
	})
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileInput, avatar *dto.AvatarFile) (*entity.User, error) {
	if err := validator.Struct(input); err != nil {
		return nil, err
	}
	if _, err := s.policy.Actor(ctx, s.db, userID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if input.DisplayName != nil {
		fields["display_name"] = strings.TrimSpace(*input.DisplayName)
	}
	if input.Bio != nil {
		fields["bio"] = *input.Bio
	}
	if input.Password != nil && *input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		fields["password_hash"] = string(hashed)
	}
	if avatar != nil && avatar.Reader != nil && s.imageStorage != nil {
		url, err := s.imageStorage.UploadImage(ctx, avatar.Reader, avatar.FileName)
		if err != nil {
			return nil, err
		}
		fields["avatar_url"] = url
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, userID, fields); err != nil {
			return nil, notFound(err, "user")
		}
		s.hub.Notify(entity.TableUsers)
	}
	return s.GetUser(ctx, userID)
}

// ApproveArtist promotes a fan once an admin has approved the request.
func (s *userService) ApproveArtist(ctx context.Context, adminID, userID uuid.UUID) (*entity.User, error) {
	if _, err := s.policy.Admin(ctx, s.db, adminID); err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != entity.RoleFan {
		return nil, fmt.Errorf("only fans can become artists, %s is %s: %w", user.Username, user.Role, apperror.ErrInvalidOperation)
	}

	err = s.repo.Update(ctx, userID, map[string]interface{}{
		"role":                   entity.RoleArtist,
		"is_fandom_active":       true,
		"is_interaction_enabled": true,
		"is_dm_active":           false,
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
		Type:       entity.NotifyRoleApproved,
		Message:    "Your artist request was approved",
	})
	return s.GetUser(ctx, userID)
}

// RevertToFan is the artist's own way back. Their posts and products stay.
func (s *userService) RevertToFan(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.policy.Actor(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != entity.RoleArtist {
		return nil, fmt.Errorf("only artists can revert to fan: %w", apperror.ErrInvalidOperation)
	}

	err = s.repo.Update(ctx, userID, map[string]interface{}{
		"role":                   entity.RoleFan,
		"is_fandom_active":       false,
		"is_interaction_enabled": false,
		"is_dm_active":           false,
	})
	if err != nil {
		return nil, err
	}
	s.hub.Notify(entity.TableUsers)
	return s.GetUser(ctx, userID)
}

func (s *userService) UpdateFandomSettings(ctx context.Context, artistID uuid.UUID, input dto.FandomSettingsInput) (*entity.User, error) {
	user, err := s.policy.Actor(ctx, s.db, artistID)
	if err != nil {
		return nil, err
	}
	if !user.IsArtist() {
		return nil, fmt.Errorf("only artists own a fandom space: %w", apperror.ErrPermissionDenied)
	}

	fields := map[string]interface{}{}
	if input.IsFandomActive != nil {
		fields["is_fandom_active"] = *input.IsFandomActive
	}
	if input.IsInteractionEnabled != nil {
		fields["is_interaction_enabled"] = *input.IsInteractionEnabled
	}
	if input.IsDmActive != nil {
		fields["is_dm_active"] = *input.IsDmActive
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.repo.Update(ctx, artistID, fields); err != nil {
		return nil, err
	}
	s.hub.Notify(entity.TableUsers)
	return s.GetUser(ctx, artistID)
}

func (s *userService) ListArtists(ctx context.Context) ([]entity.User, error) {
	return s.repo.ListArtists(ctx)
}

func (s *userService) ObserveArtists(ctx context.Context) (*live.Subscription[[]entity.User], error) {
	return live.Observe(ctx, s.hub, []string{entity.TableUsers}, s.repo.ListArtists)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, apperror.ErrNotFound)
	}
	return err
}
