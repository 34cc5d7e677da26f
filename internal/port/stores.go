package port

import (
	"context"

	"github.com/restocklabs/restock-dispatch/internal/core/domain"
)

type CatalogStore interface {
	// GetProduct returns the product or nil when it does not exist.
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)

	// SaveProduct persists product mutations (the engine only ever
	// advances RestockRound).
	SaveProduct(ctx context.Context, product *domain.Product) error
}

type StockStore interface {
	// GetStock returns the stock record or nil when it does not exist.
	// forUpdate asks for an exclusive read where the backend supports it.
	GetStock(ctx context.Context, productID int64, forUpdate bool) (*domain.StockRecord, error)

	// DecrementIfAvailable atomically subtracts quantity and returns true,
	// or returns false without mutating when the remaining stock is lower
	// than requested. Must be indivisible across concurrent callers for
	// the same product.
	DecrementIfAvailable(ctx context.Context, productID int64, quantity int) (bool, error)

	// IncreaseStock unconditionally adds quantity (replenishment).
	IncreaseStock(ctx context.Context, productID int64, quantity int) error
}

type SubscriptionStore interface {
	// ActiveUserIDs returns the ids of active subscribers for the product,
	// ascending by user id.
	ActiveUserIDs(ctx context.Context, productID int64) ([]int64, error)

	// ActiveUserIDsAfter is ActiveUserIDs restricted to ids strictly
	// greater than afterUserID.
	ActiveUserIDsAfter(ctx context.Context, productID int64, afterUserID int64) ([]int64, error)
}

type RunStore interface {
	// LatestRun returns the run with the highest restock round for the
	// product, or nil when none exists.
	LatestRun(ctx context.Context, productID int64) (*domain.DispatchRun, error)

	// SaveRun inserts or updates the run record.
	SaveRun(ctx context.Context, run *domain.DispatchRun) error
}

type DeliveryStore interface {
	// SaveDelivery appends one delivery record.
	SaveDelivery(ctx context.Context, record *domain.DeliveryRecord) error
}
