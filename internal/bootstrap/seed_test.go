package bootstrap_test

import (
	"testing"

	"anoa.com/fandomspace/internal/bootstrap"
	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedAdminUserIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)

	first, err := bootstrap.SeedAdminUser(db, "admin", "admin123")
	require.NoError(t, err)
	second, err := bootstrap.SeedAdminUser(db, "someone-else", "other")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var admins int64
	require.NoError(t, db.Model(&entity.User{}).Where("role = ?", entity.RoleAdmin).Count(&admins).Error)
	assert.Equal(t, int64(1), admins)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(first.PasswordHash), []byte("admin123")))
}
