package service_test

import (
	"context"
	"testing"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/user/dto"
	"anoa.com/fandomspace/internal/modules/user/repository"
	userService "anoa.com/fandomspace/internal/modules/user/service"
	"anoa.com/fandomspace/internal/testutil"
	"anoa.com/fandomspace/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newService(t *testing.T) (userService.UserService, *gorm.DB) {
	db := testutil.NewDB(t)
	svc := userService.NewUserService(db, repository.NewUserRepository(db), nil, nil, testutil.NewHub(t), nil)
	return svc, db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, dto.RegisterInput{Username: "  mina ", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "mina", user.Username)
	assert.Equal(t, entity.RoleFan, user.Role)
	assert.Equal(t, "mina", user.DisplayName)

	_, err = svc.Register(ctx, dto.RegisterInput{Username: "mina", Password: "another1"})
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	_, err = svc.Register(ctx, dto.RegisterInput{Username: "ab", Password: "x"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	got, err := svc.Login(ctx, dto.LoginInput{Username: "mina", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Login(ctx, dto.LoginInput{Username: "mina", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = svc.Login(ctx, dto.LoginInput{Username: "nobody", Password: "wrong"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestRoleTransitions(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	admin := testutil.CreateAdmin(t, db, "admin")
	fan := testutil.CreateFan(t, db, "fan")
	other := testutil.CreateFan(t, db, "other")

	_, err := svc.ApproveArtist(ctx, other.ID, fan.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	artist, err := svc.ApproveArtist(ctx, admin.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleArtist, artist.Role)
	assert.True(t, artist.IsFandomActive)
	assert.True(t, artist.IsInteractionEnabled)

	_, err = svc.ApproveArtist(ctx, admin.ID, fan.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)

	off := false
	on := true
	updated, err := svc.UpdateFandomSettings(ctx, fan.ID, dto.FandomSettingsInput{IsInteractionEnabled: &off, IsDmActive: &on})
	require.NoError(t, err)
	assert.False(t, updated.IsInteractionEnabled)
	assert.True(t, updated.IsDmActive)
	assert.True(t, updated.IsFandomActive)

	_, err = svc.UpdateFandomSettings(ctx, other.ID, dto.FandomSettingsInput{IsDmActive: &on})
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	artists, err := svc.ListArtists(ctx)
	require.NoError(t, err)
	require.Len(t, artists, 1)

	back, err := svc.RevertToFan(ctx, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleFan, back.Role)
	assert.False(t, back.IsFandomActive)

	_, err = svc.RevertToFan(ctx, fan.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)
}

func TestObserveUserTracksProfileChanges(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	fan := testutil.CreateFan(t, db, "fan")

	sub, err := svc.ObserveUser(ctx, fan.ID)
	require.NoError(t, err)
	defer sub.Close()
	testutil.Await(t, sub, func(u *entity.User) bool { return u != nil && u.DisplayName == "fan" })

	name := "Fan Prime"
	_, err = svc.UpdateProfile(ctx, fan.ID, dto.UpdateProfileInput{DisplayName: &name}, nil)
	require.NoError(t, err)

	testutil.Await(t, sub, func(u *entity.User) bool { return u != nil && u.DisplayName == "Fan Prime" })
}
