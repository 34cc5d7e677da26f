package domain

import "time"

// DeliveryRecord is one notification that made it past the rate limiter.
// Rows are append-only; the engine never updates or deletes them.
type DeliveryRecord struct {
	ID           string
	UserID       int64
	ProductID    int64
	RestockRound int
	DeliveredAt  time.Time
}
