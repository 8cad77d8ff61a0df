package models

import "time"

type Ingredient struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Quantity        float64 `json:"quantity"`
	DeliveryDate    string  `json:"delivery_date"`
	MinimumQuantity float64 `json:"minimum_quantity"`
}

// LowStock reports whether the stock fell to or below the minimum.
func (i Ingredient) LowStock() bool {
	return i.MinimumQuantity > 0 && i.Quantity <= i.MinimumQuantity
}

type IngredientInput struct {
	Name            string   `json:"name"`
	Quantity        float64  `json:"quantity"`
	DeliveryDate    string   `json:"delivery_date"`
	MinimumQuantity *float64 `json:"minimum_quantity,omitempty"`
}

type MealIngredient struct {
	ID           int64      `json:"id"`
	IngredientID int64      `json:"ingredient_id"`
	Quantity     float64    `json:"quantity"`
	Ingredient   Ingredient `json:"ingredient"`
}

type MealIngredientInput struct {
	IngredientID int64   `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
}

type Meal struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Ingredients []MealIngredient `json:"ingredients"`
}

type MealInput struct {
	Name        string                `json:"name"`
	Ingredients []MealIngredientInput `json:"ingredients"`
}

type MealPortions struct {
	MealID   int64  `json:"meal_id"`
	MealName string `json:"meal_name"`
	Portions int    `json:"portions"`
}

type MealServeInput struct {
	Portions int `json:"portions"`
}

type MealServe struct {
	ID       int64     `json:"id"`
	MealID   int64     `json:"meal_id"`
	ServedAt time.Time `json:"served_at"`
	UserID   int64     `json:"user_id"`
	Portions int       `json:"portions"`
	Meal     *Meal     `json:"meal,omitempty"`
	User     *User     `json:"user,omitempty"`
}

type MonthlyReport struct {
	Year                 int     `json:"year"`
	Month                int     `json:"month"`
	TotalServed          int     `json:"total_served"`
	TotalPossible        int     `json:"total_possible"`
	DifferencePercentage float64 `json:"difference_percentage"`
	Warning              *string `json:"warning"`
}

type IngredientUsage struct {
	IngredientID   int64   `json:"ingredient_id"`
	IngredientName string  `json:"ingredient_name"`
	TotalUsed      float64 `json:"total_used"`
	DeliveryDate   string  `json:"delivery_date"`
}

type LogEntry struct {
	ID           int64     `json:"id"`
	Action       string    `json:"action"`
	UserID       int64     `json:"user_id"`
	UserUsername string    `json:"user_username"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}
