package domain

import "time"

// WindowUpdatedEvent represents the payload for numbers.window.updated messages.
type WindowUpdatedEvent struct {
	EventID   string
	Category  Category
	Resource  string
	PrevState []int64
	CurrState []int64
	Fetched   []int64
	Average   float64
	UpdatedAt time.Time
}
