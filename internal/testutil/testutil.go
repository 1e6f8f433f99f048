// Package testutil provides isolated databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"anoa.com/fandomspace/internal/bootstrap"
	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/pkg/live"
	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Password is the plain text password of every fixture user.
const Password = "secret123"

// NewDB opens a private in-memory database with the full schema. It is
// closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, bootstrap.Migrate(db))
	return db
}

// NewHub returns a live hub closed at the end of the test.
func NewHub(t testing.TB) *live.Hub {
	t.Helper()
	hub := live.NewHub()
	t.Cleanup(func() { _ = hub.Close() })
	return hub
}

// NewRedis starts an in-process Redis server and returns a client for it.
func NewRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

var (
	hashOnce    sync.Once
	fixtureHash string
)

func passwordHash(t testing.TB) string {
	hashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		require.NoError(t, err)
		fixtureHash = string(h)
	})
	return fixtureHash
}

// CreateUser inserts a user with the given role. Artists get an active,
// interactive fandom space with DMs open.
func CreateUser(t testing.TB, db *gorm.DB, username, role string) *entity.User {
	t.Helper()
	u := &entity.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: passwordHash(t),
		Role:         role,
	}
	if role == entity.RoleArtist {
		u.IsFandomActive = true
		u.IsInteractionEnabled = true
		u.IsDmActive = true
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateFan(t testing.TB, db *gorm.DB, username string) *entity.User {
	return CreateUser(t, db, username, entity.RoleFan)
}

func CreateArtist(t testing.TB, db *gorm.DB, username string) *entity.User {
	return CreateUser(t, db, username, entity.RoleArtist)
}

func CreateAdmin(t testing.TB, db *gorm.DB, username string) *entity.User {
	return CreateUser(t, db, username, entity.RoleAdmin)
}

func Follow(t testing.TB, db *gorm.DB, follower, followee uuid.UUID) {
	t.Helper()
	require.NoError(t, db.Create(&entity.Follow{FollowerID: follower, FolloweeID: followee}).Error)
}

func Block(t testing.TB, db *gorm.DB, blocker, blocked uuid.UUID) {
	t.Helper()
	require.NoError(t, db.Create(&entity.Block{BlockerID: blocker, BlockedID: blocked}).Error)
}

func CreatePost(t testing.TB, db *gorm.DB, author, artist uuid.UUID, content string, thread bool) *entity.Post {
	t.Helper()
	p := &entity.Post{AuthorID: author, ArtistID: artist, Content: content, IsThread: thread}
	require.NoError(t, db.Create(p).Error)
	return p
}

func CreateProduct(t testing.TB, db *gorm.DB, artist uuid.UUID, name string, price int64, stock int) *entity.Product {
	t.Helper()
	p := &entity.Product{ArtistID: artist, Name: name, Price: price, Stock: stock}
	require.NoError(t, db.Create(p).Error)
	return p
}

func Reload[T any](t testing.TB, db *gorm.DB, where string, args ...interface{}) T {
	t.Helper()
	var v T
	require.NoError(t, db.Where(where, args...).First(&v).Error)
	return v
}

// Await reads updates until pred accepts one, failing the test after two seconds.
func Await[T any](t testing.TB, sub *live.Subscription[T], pred func(T) bool) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-sub.Updates():
			require.True(t, ok, "subscription closed")
			if pred(v) {
				return v
			}
		case <-deadline:
			t.Fatalf("timed out waiting for live update, last value %+v", sub.Value())
		}
	}
}
