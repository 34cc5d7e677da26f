package domain

import "time"

// Subscription marks a user's interest in restock notifications for a
// product. Rows are created and deactivated by the subscription service;
// the dispatch engine only ever reads them.
type Subscription struct {
	ID        int64
	ProductID int64
	UserID    int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
