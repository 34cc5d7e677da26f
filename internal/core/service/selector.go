package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/restocklabs/restock-dispatch/internal/port"
)

// RecipientSelector computes the ordered recipient set for a dispatch run.
// Ordering is ascending by user id so the resumption cursor has a
// well-defined meaning; the sort is applied here even when the backing
// store already orders its results.
type RecipientSelector struct {
	subs port.SubscriptionStore
}

func NewRecipientSelector(subs port.SubscriptionStore) *RecipientSelector {
	return &RecipientSelector{subs: subs}
}

// ForAutomaticRun returns every active subscriber for the product. An empty
// result is a valid outcome the caller has to react to.
func (s *RecipientSelector) ForAutomaticRun(ctx context.Context, productID int64) ([]int64, error) {
	ids, err := s.subs.ActiveUserIDs(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list active subscribers: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// ForManualResume returns the active subscribers strictly after the cursor,
// or the full set when the cursor is nil.
func (s *RecipientSelector) ForManualResume(ctx context.Context, productID int64, afterUserID *int64) ([]int64, error) {
	if afterUserID == nil {
		return s.ForAutomaticRun(ctx, productID)
	}
	ids, err := s.subs.ActiveUserIDsAfter(ctx, productID, *afterUserID)
	if err != nil {
		return nil, fmt.Errorf("list remaining subscribers: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}
