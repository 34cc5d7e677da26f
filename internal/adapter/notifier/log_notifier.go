// Package notifier provides outbound notification transports.
package notifier

import (
	"context"

	"github.com/restocklabs/restock-dispatch/internal/obs"
)

// LogNotifier writes each notification to the structured log. The real
// push/email transport is an external collaborator; this stand-in only has
// to succeed, which is all the engine assumes of the transport.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Deliver(_ context.Context, userID, productID int64, restockRound int) error {
	obs.Logger.Info("restock notification sent",
		"user_id", userID, "product_id", productID, "restock_round", restockRound)
	return nil
}
