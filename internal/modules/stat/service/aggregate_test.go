package service

import (
	"encoding/json"
	"testing"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return now.AddDate(0, 0, -offset)
}

func order(t *testing.T, buyer uuid.UUID, status string, at time.Time, items ...entity.OrderItem) entity.Order {
	t.Helper()
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	var subtotal int64
	for _, it := range items {
		subtotal += it.Price * int64(it.Quantity)
	}
	return entity.Order{UserID: buyer, Status: status, Subtotal: subtotal, ItemsJSON: raw, CreatedAt: at}
}

func TestAggregateZeroActivity(t *testing.T) {
	artist := uuid.New()
	out := Aggregate(artist, Activity{}, now, 7, 5)

	require.Len(t, out.Series, 7)
	assert.Equal(t, "2025-03-04", out.Series[0].Date)
	assert.Equal(t, "2025-03-10", out.Series[6].Date)
	for _, p := range out.Series {
		assert.Zero(t, p.NewFollowers+p.Posts+p.Likes+p.Comments+p.Revenue)
	}
	assert.NotNil(t, out.TopProducts)
	assert.Empty(t, out.TopProducts)
	assert.NotNil(t, out.TopFans)
	assert.Empty(t, out.TopFans)
	assert.Zero(t, out.TotalFollowers)
}

func TestAggregateBuckets(t *testing.T) {
	artist, fan, other := uuid.New(), uuid.New(), uuid.New()
	lightstick := entity.OrderItem{ProductID: uuid.New(), Name: "Lightstick", Price: 50000, Quantity: 1}
	poster := entity.OrderItem{ProductID: uuid.New(), Name: "Poster", Price: 10000, Quantity: 3}

	in := Activity{
		Follows: []entity.Follow{
			{FollowerID: fan, CreatedAt: day(1)},
			{FollowerID: other, CreatedAt: day(30)}, // before the window
		},
		Posts: []entity.Post{{CreatedAt: day(0)}, {CreatedAt: day(0)}, {CreatedAt: day(2)}},
		Likes: []entity.Like{
			{UserID: fan, CreatedAt: day(0)},
			{UserID: artist, CreatedAt: day(0)},
		},
		Comments: []entity.Comment{
			{UserID: fan, CreatedAt: day(2)},
			{UserID: other, CreatedAt: day(2)},
		},
		Orders: []entity.Order{
			order(t, fan, entity.OrderDelivered, day(1), lightstick),
			order(t, other, entity.OrderPending, day(0), poster),
			order(t, other, entity.OrderRefunded, day(0), lightstick),
		},
	}
	out := Aggregate(artist, in, now, 7, 5)

	assert.Equal(t, int64(2), out.TotalFollowers)
	assert.Equal(t, int64(1), out.NewFollowers)
	assert.Equal(t, int64(3), out.Posts)
	assert.Equal(t, int64(3), out.Engagement)
	assert.Equal(t, int64(80000), out.Revenue)

	today := out.Series[6]
	assert.Equal(t, int64(2), today.Posts)
	assert.Equal(t, int64(1), today.Likes)
	assert.Equal(t, int64(30000), today.Revenue)
	yesterday := out.Series[5]
	assert.Equal(t, int64(1), yesterday.NewFollowers)
	assert.Equal(t, int64(50000), yesterday.Revenue)
	assert.Equal(t, int64(2), out.Series[4].Comments)

	require.Len(t, out.TopProducts, 2)
	assert.Equal(t, "Poster", out.TopProducts[0].Name)
	assert.Equal(t, int64(3), out.TopProducts[0].Quantity)
	assert.Equal(t, int64(1), out.TopProducts[1].Quantity)

	require.Len(t, out.TopFans, 2)
	assert.Equal(t, int64(3), out.TopFans[0].Interactions)
	assert.Equal(t, int64(2), out.TopFans[1].Interactions)
}

func TestAggregateTopNIsBounded(t *testing.T) {
	artist := uuid.New()
	var likes []entity.Like
	for i := 0; i < 10; i++ {
		likes = append(likes, entity.Like{UserID: uuid.New(), CreatedAt: now})
	}
	out := Aggregate(artist, Activity{Likes: likes}, now, 1, 3)
	assert.Len(t, out.TopFans, 3)
	require.Len(t, out.Series, 1)
	assert.Equal(t, int64(10), out.Series[0].Likes)
}

func TestWindowStart(t *testing.T) {
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), WindowStart(now, 1))
	assert.Equal(t, time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC), WindowStart(now, 30))
}
