package store_test

import (
	"context"
	"testing"
	"time"

	"anoa.com/fandomspace/internal/entity"
	commerceDto "anoa.com/fandomspace/internal/modules/commerce/dto"
	feedDto "anoa.com/fandomspace/internal/modules/feed/dto"
	moderationDto "anoa.com/fandomspace/internal/modules/moderation/dto"
	"anoa.com/fandomspace/internal/store"
	"anoa.com/fandomspace/internal/testutil"
	"anoa.com/fandomspace/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.Store {
	db := testutil.NewDB(t)
	s := store.New(db, store.Deps{})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCheckoutAndLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	artist := testutil.CreateArtist(t, s.DB, "artist")
	fan := testutil.CreateFan(t, s.DB, "fan")

	following, err := s.Social.ToggleFollow(ctx, fan.ID, artist.ID)
	require.NoError(t, err)
	require.True(t, following)

	product, err := s.Commerce.CreateProduct(ctx, artist.ID, commerceDto.CreateProductInput{Name: "Lightstick", Price: 50000, Stock: 1})
	require.NoError(t, err)

	_, err = s.Commerce.AddToCart(ctx, fan.ID, commerceDto.AddToCartInput{ProductID: product.ID})
	require.NoError(t, err)
	orders, err := s.Commerce.CreateOrder(ctx, fan.ID, commerceDto.CheckoutInput{ShippingAddress: "Jl. X", PaymentMethod: "E-Wallet"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	order := orders[0]
	assert.Equal(t, entity.OrderPending, order.Status)
	assert.Equal(t, int64(70500), order.TotalAmount)

	// A second buyer finds the shelf empty.
	other := testutil.CreateFan(t, s.DB, "other")
	testutil.Follow(t, s.DB, other.ID, artist.ID)
	_, err = s.Commerce.AddToCart(ctx, other.ID, commerceDto.AddToCartInput{ProductID: product.ID})
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)

	for _, step := range []func() (*entity.Order, error){
		func() (*entity.Order, error) { return s.Commerce.ProcessOrder(ctx, artist.ID, order.ID) },
		func() (*entity.Order, error) { return s.Commerce.ShipOrder(ctx, artist.ID, order.ID) },
		func() (*entity.Order, error) { return s.Commerce.ConfirmReceipt(ctx, fan.ID, order.ID) },
	} {
		_, err := step()
		require.NoError(t, err)
	}
	_, err = s.Commerce.UpdateOrderStatus(ctx, artist.ID, order.ID, entity.OrderShipped)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	dash, err := s.Stats.GetArtistDashboard(ctx, artist.ID, artist.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), dash.Revenue)
	require.Len(t, dash.TopProducts, 1)
	assert.Equal(t, "Lightstick", dash.TopProducts[0].Name)
}

func TestReportAndSuspend(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	admin := testutil.CreateAdmin(t, s.DB, "admin")
	artist := testutil.CreateArtist(t, s.DB, "artist")
	fan := testutil.CreateFan(t, s.DB, "fan")
	testutil.Follow(t, s.DB, fan.ID, artist.ID)

	post, err := s.Feed.CreatePost(ctx, artist.ID, feedDto.CreatePostInput{ArtistID: artist.ID, Content: "hello"})
	require.NoError(t, err)

	input := moderationDto.ReportInput{Type: entity.ReportPost, ReferenceID: post.ID, Reason: "spam"}
	first, err := s.Moderation.ReportUser(ctx, fan.ID, input)
	require.NoError(t, err)
	second, err := s.Moderation.ReportUser(ctx, fan.ID, input)
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	_, err = s.Moderation.SuspendUserDirect(ctx, admin.ID, fan.ID, time.Hour, "spam")
	require.NoError(t, err)
	_, err = s.Feed.ToggleLike(ctx, fan.ID, post.ID, entity.LikeTargetPost)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	lifted, err := s.Moderation.SweepExpiredSuspensions(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), lifted)

	liked, err := s.Feed.ToggleLike(ctx, fan.ID, post.ID, entity.LikeTargetPost)
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestFeedFollowsGraph(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	artist := testutil.CreateArtist(t, s.DB, "artist")
	fan := testutil.CreateFan(t, s.DB, "fan")

	sub, err := s.Feed.ObserveFeedPosts(ctx, fan.ID)
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, testutil.Await(t, sub, func([]feedDto.PostView) bool { return true }))

	_, err = s.Feed.CreatePost(ctx, artist.ID, feedDto.CreatePostInput{ArtistID: artist.ID, Content: "news"})
	require.NoError(t, err)
	_, err = s.Social.ToggleFollow(ctx, fan.ID, artist.ID)
	require.NoError(t, err)

	posts := testutil.Await(t, sub, func(p []feedDto.PostView) bool { return len(p) == 1 })
	assert.Equal(t, "news", posts[0].Content)

	_, err = s.Social.ToggleBlock(ctx, artist.ID, fan.ID)
	require.NoError(t, err)
	testutil.Await(t, sub, func(p []feedDto.PostView) bool { return len(p) == 0 })
}
