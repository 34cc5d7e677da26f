package domain

import "time"

type Product struct {
	ID           int64
	RestockRound int
}

// StockRecord holds the remaining quantity for one product (1:1).
// Quantity never goes negative; a decrement that would cross zero
// is refused by the stock store, not clamped.
type StockRecord struct {
	ProductID int64
	Quantity  int
	UpdatedAt time.Time
}
