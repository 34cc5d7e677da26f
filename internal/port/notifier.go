package port

import "context"

// Notifier is the outbound transport. Deliver is fire-and-forget: it does
// not report per-recipient business failures, only infrastructure errors.
type Notifier interface {
	Deliver(ctx context.Context, userID, productID int64, restockRound int) error
}
