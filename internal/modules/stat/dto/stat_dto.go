package dto

import "github.com/google/uuid"

// DailyPoint is one UTC day of an artist's activity.
type DailyPoint struct {
	Date         string `json:"date"` // 2006-01-02
	NewFollowers int64  `json:"new_followers"`
	Posts        int64  `json:"posts"`
	Likes        int64  `json:"likes"`
	Comments     int64  `json:"comments"`
	Revenue      int64  `json:"revenue"`
}

type TopProduct struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int64     `json:"quantity"`
	Revenue   int64     `json:"revenue"`
}

type TopFan struct {
	UserID       uuid.UUID `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	Interactions int64     `json:"interactions"`
}

type Dashboard struct {
	ArtistID       uuid.UUID    `json:"artist_id"`
	Days           int          `json:"days"`
	TotalFollowers int64        `json:"total_followers"`
	NewFollowers   int64        `json:"new_followers"`
	Posts          int64        `json:"posts"`
	Engagement     int64        `json:"engagement"`
	Revenue        int64        `json:"revenue"`
	Series         []DailyPoint `json:"series"`
	TopProducts    []TopProduct `json:"top_products"`
	TopFans        []TopFan     `json:"top_fans"`
}

type PlatformSummary struct {
	Users          int64 `json:"users"`
	Artists        int64 `json:"artists"`
	Suspended      int64 `json:"suspended"`
	Orders         int64 `json:"orders"`
	PendingReports int64 `json:"pending_reports"`
}
