package models

import "time"

type Expense struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Amount      float64   `json:"amount"`
	Category    *string   `json:"category"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExpenseInput struct {
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency,omitempty"`
	Description *string `json:"description,omitempty"`
}
