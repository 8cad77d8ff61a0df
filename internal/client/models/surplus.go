package models

import "time"

type BagStatus string

const (
	BagAvailable BagStatus = "available"
	BagSold      BagStatus = "sold"
)

type SurpriseBag struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Contents      string    `json:"contents"`
	OriginalPrice float64   `json:"original_price"`
	DiscountPrice float64   `json:"discount_price"`
	Quantity      int       `json:"quantity"`
	Status        BagStatus `json:"status"`
	StoreID       int64     `json:"store_id"`
	StoreName     string    `json:"store_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ImageURL      string    `json:"image_url,omitempty"`
}

// BagInput is sent as multipart form fields; nil pointers are omitted so an
// update only touches what the caller set.
type BagInput struct {
	Title         *string
	Description   *string
	Contents      *string
	OriginalPrice *float64
	DiscountPrice *float64
	Quantity      *int
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type OrderItem struct {
	ID          int64       `json:"id"`
	OrderID     int64       `json:"order_id"`
	SurpriseBag SurpriseBag `json:"surprise_bag"`
	Quantity    int         `json:"quantity"`
	Price       float64     `json:"price"`
}

type Order struct {
	ID         int64       `json:"id"`
	CustomerID int64       `json:"customer_id"`
	Status     OrderStatus `json:"status"`
	TotalPrice float64     `json:"total_price"`
	CreatedAt  time.Time   `json:"created_at"`
	Items      []OrderItem `json:"items"`
}

type OrderCreate struct {
	SurpriseBagID int64 `json:"surprise_bag_id"`
	Quantity      int   `json:"quantity"`
}

type Balance struct {
	Balance float64 `json:"balance"`
}

type Profile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Role      Role       `json:"role"`
	Balance   float64    `json:"balance"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type ProfileUpdate struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
}
