package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OrderPending         = "PENDING"
	OrderProcessed       = "PROCESSED"
	OrderShipped         = "SHIPPED"
	OrderDelivered       = "DELIVERED"
	OrderRefundRequested = "REFUND_REQUESTED"
	OrderRefunded        = "REFUNDED"
	OrderRefundRejected  = "REFUND_REJECTED"
)

type Product struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ArtistID    uuid.UUID                   `gorm:"type:uuid;not null;index" json:"artist_id"`
	Name        string                      `gorm:"size:150;not null" json:"name"`
	Description string                      `gorm:"type:text" json:"description"`
	Price       int64                       `gorm:"not null" json:"price"` // whole rupiah
	Stock       int                         `gorm:"not null" json:"stock"`
	Images      datatypes.JSONSlice[string] `json:"images"`
	SoldCount   int                         `gorm:"not null" json:"sold_count"`
	Rating      float64                     `gorm:"not null" json:"rating"`
	CreatedAt   time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) TableName() string {
	return TableProducts
}

func (p *Product) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	return
}

type CartItem struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"product_id"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *CartItem) TableName() string {
	return TableCartItems
}

// OrderItem is one line of the frozen snapshot stored in Order.ItemsJSON.
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Quantity  int       `json:"quantity"`
	Image     string    `json:"image,omitempty"`
}

type Order struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	ArtistID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"artist_id"`
	Subtotal        int64          `gorm:"not null" json:"subtotal"`
	Tax             int64          `gorm:"not null" json:"tax"`
	ShippingFee     int64          `gorm:"not null" json:"shipping_fee"`
	TotalAmount     int64          `gorm:"not null" json:"total_amount"`
	Status          string         `gorm:"size:20;not null;index" json:"status"`
	ShippingAddress string         `gorm:"type:text;not null" json:"shipping_address"`
	PaymentMethod   string         `gorm:"size:50;not null" json:"payment_method"`
	ItemsJSON       datatypes.JSON `gorm:"not null" json:"items"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *Order) TableName() string {
	return TableOrders
}

func (o *Order) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == uuid.Nil {
		o.ID, err = uuid.NewV7()
	}
	return
}

// Items decodes the frozen line snapshot.
func (o *Order) Items() ([]OrderItem, error) {
	items := []OrderItem{}
	if len(o.ItemsJSON) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(o.ItemsJSON, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// IsFinal reports whether no further status change is possible.
func (o *Order) IsFinal() bool {
	switch o.Status {
	case OrderDelivered, OrderRefunded, OrderRefundRejected:
		return true
	}
	return false
}

// Subscription grants a fan paid access to an artist until ValidUntil.
type Subscription struct {
	ArtistID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"artist_id"`
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	ValidUntil  int64     `gorm:"not null" json:"valid_until"` // epoch ms
	IsCancelled bool      `gorm:"not null" json:"is_cancelled"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Subscription) TableName() string {
	return TableSubscriptions
}

// Active is derived, never stored. Cancelling stops renewal, the paid window
// is still honoured by CanAccess.
func (s *Subscription) Active(nowMs int64) bool {
	return nowMs < s.ValidUntil && !s.IsCancelled
}

// CanAccess reports whether paid access is still within its window.
func (s *Subscription) CanAccess(nowMs int64) bool {
	return nowMs < s.ValidUntil
}
