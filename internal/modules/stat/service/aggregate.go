package service

import (
	"sort"
	"time"

	"anoa.com/fandomspace/internal/entity"
	"anoa.com/fandomspace/internal/modules/stat/dto"
	"github.com/google/uuid"
)

const dayLayout = "2006-01-02"

// Activity is the raw material of a dashboard. Follows holds every follow
// edge of the artist; the other slices may be limited to the window.
type Activity struct {
	Follows  []entity.Follow
	Posts    []entity.Post
	Likes    []entity.Like    // likes on the artist's posts
	Comments []entity.Comment // comments on the artist's posts
	Orders   []entity.Order
}

// WindowStart is the first instant counted by a window of days ending at now.
func WindowStart(now time.Time, days int) time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(days - 1))
}

// Aggregate reduces activity into daily buckets and top-N rollups. Refunded
// orders earn nothing and the artist's own likes and comments are not
// engagement.
func Aggregate(artistID uuid.UUID, in Activity, now time.Time, days, topN int) dto.Dashboard {
	start := WindowStart(now, days)
	series := make([]dto.DailyPoint, days)
	for i := range series {
		series[i].Date = start.AddDate(0, 0, i).Format(dayLayout)
	}
	bucket := func(t time.Time) *dto.DailyPoint {
		t = t.UTC()
		if t.Before(start) {
			return nil
		}
		i := int(t.Sub(start) / (24 * time.Hour))
		if i >= days {
			return nil
		}
		return &series[i]
	}

	out := dto.Dashboard{
		ArtistID:       artistID,
		Days:           days,
		TotalFollowers: int64(len(in.Follows)),
	}
	fans := map[uuid.UUID]int64{}

	for _, f := range in.Follows {
		if b := bucket(f.CreatedAt); b != nil {
			b.NewFollowers++
			out.NewFollowers++
		}
	}
	for _, p := range in.Posts {
		if b := bucket(p.CreatedAt); b != nil {
			b.Posts++
			out.Posts++
		}
	}
	for _, l := range in.Likes {
		if l.UserID == artistID {
			continue
		}
		if b := bucket(l.CreatedAt); b != nil {
			b.Likes++
			out.Engagement++
			fans[l.UserID]++
		}
	}
	for _, c := range in.Comments {
		if c.UserID == artistID {
			continue
		}
		if b := bucket(c.CreatedAt); b != nil {
			b.Comments++
			out.Engagement++
			fans[c.UserID]++
		}
	}

	products := map[uuid.UUID]*dto.TopProduct{}
	for _, o := range in.Orders {
		if o.Status == entity.OrderRefunded {
			continue
		}
		b := bucket(o.CreatedAt)
		if b == nil {
			continue
		}
		b.Revenue += o.Subtotal
		out.Revenue += o.Subtotal
		fans[o.UserID]++

		items, err := o.Items()
		if err != nil {
			continue
		}
		for _, item := range items {
			tp, ok := products[item.ProductID]
			if !ok {
				tp = &dto.TopProduct{ProductID: item.ProductID}
				products[item.ProductID] = tp
			}
			tp.Name = item.Name
			tp.Quantity += int64(item.Quantity)
			tp.Revenue += item.Price * int64(item.Quantity)
		}
	}

	out.Series = series
	out.TopProducts = topProducts(products, topN)
	out.TopFans = topFans(fans, topN)
	return out
}

func topProducts(products map[uuid.UUID]*dto.TopProduct, n int) []dto.TopProduct {
	list := make([]dto.TopProduct, 0, len(products))
	for _, p := range products {
		list = append(list, *p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Quantity != list[j].Quantity {
			return list[i].Quantity > list[j].Quantity
		}
		if list[i].Revenue != list[j].Revenue {
			return list[i].Revenue > list[j].Revenue
		}
		return list[i].ProductID.String() < list[j].ProductID.String()
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}

func topFans(fans map[uuid.UUID]int64, n int) []dto.TopFan {
	list := make([]dto.TopFan, 0, len(fans))
	for id, count := range fans {
		list = append(list, dto.TopFan{UserID: id, Interactions: count})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Interactions != list[j].Interactions {
			return list[i].Interactions > list[j].Interactions
		}
		return list[i].UserID.String() < list[j].UserID.String()
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
