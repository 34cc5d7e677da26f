// Package service implements the restock dispatch engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/restocklabs/restock-dispatch/internal/core/domain"
	"github.com/restocklabs/restock-dispatch/internal/obs"
	"github.com/restocklabs/restock-dispatch/internal/port"
	"github.com/restocklabs/restock-dispatch/internal/ratelimit"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrStockNotFound       = errors.New("stock record not found")
	ErrRunNotFound         = errors.New("dispatch run not found")
	ErrNoActiveSubscribers = errors.New("no active subscribers")
)

// Stores bundles the persistence collaborators the engine drives.
type Stores struct {
	Catalog       port.CatalogStore
	Stock         port.StockStore
	Subscriptions port.SubscriptionStore
	Runs          port.RunStore
	Deliveries    port.DeliveryStore
}

// Options tunes engine scheduling.
type Options struct {
	// Workers bounds the fan-out of the automatic path. Values below 2
	// select the sequential mode.
	Workers int

	// RatePollInterval is the sleep between limiter polls on the manual
	// path, which waits for admission instead of skipping.
	RatePollInterval time.Duration
}

// Engine orchestrates one dispatch run: it advances the restock round,
// selects recipients, drives delivery through the rate limiter and the
// stock ledger, and keeps the run record's cursor and status current after
// every state-changing step.
type Engine struct {
	stores   Stores
	notifier port.Notifier
	limiter  *ratelimit.Limiter
	selector *RecipientSelector

	workers  int
	rateWait time.Duration
}

func NewEngine(stores Stores, notifier port.Notifier, limiter *ratelimit.Limiter, opts Options) *Engine {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	rateWait := opts.RatePollInterval
	if rateWait <= 0 {
		rateWait = 5 * time.Millisecond
	}
	return &Engine{
		stores:   stores,
		notifier: notifier,
		limiter:  limiter,
		selector: NewRecipientSelector(stores.Subscriptions),
		workers:  workers,
		rateWait: rateWait,
	}
}

// RunAutomatic advances the product's restock round and notifies every
// active subscriber, decrementing one unit of stock per admitted delivery.
// The run stops admitting recipients the moment stock is exhausted; the
// partially processed run is returned with status CANCELED_BY_SOLD_OUT and
// a nil error, since selling out is a normal outcome.
func (e *Engine) RunAutomatic(ctx context.Context, productID int64) (*domain.RunSummary, error) {
	product, err := e.stores.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	stock, err := e.stores.Stock.GetStock(ctx, productID, false)
	if err != nil {
		return nil, fmt.Errorf("load stock for product %d: %w", productID, err)
	}
	if stock == nil {
		return nil, ErrStockNotFound
	}

	product.RestockRound++
	if err := e.stores.Catalog.SaveProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("advance restock round: %w", err)
	}

	run := &domain.DispatchRun{
		ID:           uuid.NewString(),
		ProductID:    productID,
		RestockRound: product.RestockRound,
		Status:       domain.RunStatusInProgress,
		CreatedAt:    time.Now(),
	}
	if err := e.stores.Runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create dispatch run: %w", err)
	}
	obs.Logger.Info("dispatch run started",
		"run_id", run.ID, "product_id", productID, "restock_round", run.RestockRound)

	progress := newRunProgress(run, e.stores.Runs)

	recipients, err := e.selector.ForAutomaticRun(ctx, productID)
	if err != nil {
		return nil, e.abort(ctx, progress, err)
	}
	if len(recipients) == 0 {
		if err := progress.Finalize(ctx, domain.RunStatusNoActiveUsers); err != nil {
			return nil, fmt.Errorf("finalize run: %w", err)
		}
		obs.Logger.Warn("no active subscribers", "run_id", run.ID, "product_id", productID)
		return nil, ErrNoActiveSubscribers
	}

	pool := newWorkPool(e.workers)
	var soldOut, faulted atomic.Bool
	var errOnce sync.Once
	var firstErr error

	for _, userID := range recipients {
		if soldOut.Load() || faulted.Load() {
			break
		}
		uid := userID
		pool.Submit(func() {
			exhausted, err := e.notifyOne(ctx, run, progress, uid)
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				faulted.Store(true)
				return
			}
			if exhausted {
				soldOut.Store(true)
			}
		})
	}
	pool.Wait()

	if faulted.Load() {
		return nil, e.abort(ctx, progress, firstErr)
	}
	if soldOut.Load() {
		if err := progress.Finalize(ctx, domain.RunStatusCanceledSoldOut); err != nil {
			return nil, fmt.Errorf("finalize run: %w", err)
		}
		obs.Logger.Warn("dispatch stopped, stock exhausted",
			"run_id", run.ID, "product_id", productID)
		return progress.Summary(), nil
	}

	if err := progress.Finalize(ctx, domain.RunStatusCompleted); err != nil {
		return nil, fmt.Errorf("finalize run: %w", err)
	}
	obs.Logger.Info("dispatch run completed",
		"run_id", run.ID, "product_id", productID, "recipients", len(recipients))
	return progress.Summary(), nil
}

// RunManual re-drives the latest run for the product from its cursor. It
// never creates a new round and never touches stock: the manual path is an
// administrative re-delivery, applied to whoever remains after the cursor,
// and it finalizes the run as COMPLETED once the remainder is exhausted.
func (e *Engine) RunManual(ctx context.Context, productID int64) error {
	product, err := e.stores.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("load product %d: %w", productID, err)
	}
	if product == nil {
		return ErrProductNotFound
	}

	run, err := e.stores.Runs.LatestRun(ctx, productID)
	if err != nil {
		return fmt.Errorf("load latest run for product %d: %w", productID, err)
	}
	if run == nil {
		return ErrRunNotFound
	}

	recipients, err := e.selector.ForManualResume(ctx, productID, run.LastNotifiedUserID)
	if err != nil {
		return fmt.Errorf("select remaining recipients: %w", err)
	}
	obs.Logger.Info("manual dispatch started",
		"run_id", run.ID, "product_id", productID, "remaining", len(recipients))

	progress := newRunProgress(run, e.stores.Runs)
	for _, userID := range recipients {
		if err := e.waitAcquire(ctx); err != nil {
			return e.abort(ctx, progress, fmt.Errorf("wait for rate limiter: %w", err))
		}
		if err := e.deliver(ctx, run, userID); err != nil {
			return e.abort(ctx, progress, err)
		}
		if err := progress.Advance(ctx, userID); err != nil {
			return e.abort(ctx, progress, fmt.Errorf("advance cursor: %w", err))
		}
	}

	if err := progress.Finalize(ctx, domain.RunStatusCompleted); err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	obs.Logger.Info("manual dispatch completed", "run_id", run.ID, "product_id", productID)
	return nil
}

// notifyOne handles one recipient on the automatic path. It returns
// exhausted=true when the decrement is refused, which ends admission for
// the run. A rate-limiter denial skips the recipient without touching the
// cursor, so a later manual re-drive picks the id up again.
func (e *Engine) notifyOne(ctx context.Context, run *domain.DispatchRun, progress *runProgress, userID int64) (exhausted bool, err error) {
	if !e.limiter.TryAcquire() {
		obs.Logger.Warn("rate limit exceeded, recipient skipped",
			"product_id", run.ProductID, "user_id", userID)
		return false, nil
	}

	if err := e.deliver(ctx, run, userID); err != nil {
		return false, err
	}

	ok, err := e.stores.Stock.DecrementIfAvailable(ctx, run.ProductID, 1)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	if !ok {
		return true, nil
	}

	if err := progress.Advance(ctx, userID); err != nil {
		return false, fmt.Errorf("advance cursor: %w", err)
	}
	return false, nil
}

// deliver sends the notification and appends its delivery record.
func (e *Engine) deliver(ctx context.Context, run *domain.DispatchRun, userID int64) error {
	if err := e.notifier.Deliver(ctx, userID, run.ProductID, run.RestockRound); err != nil {
		return fmt.Errorf("deliver to user %d: %w", userID, err)
	}
	record := &domain.DeliveryRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		ProductID:    run.ProductID,
		RestockRound: run.RestockRound,
		DeliveredAt:  time.Now(),
	}
	if err := e.stores.Deliveries.SaveDelivery(ctx, record); err != nil {
		return fmt.Errorf("save delivery record: %w", err)
	}
	return nil
}

// waitAcquire polls the limiter until admitted or the context ends.
func (e *Engine) waitAcquire(ctx context.Context) error {
	for !e.limiter.TryAcquire() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.rateWait):
		}
	}
	return nil
}

// abort finalizes the run as CANCELED_BY_ERROR and propagates the fault.
// A failure of the finalize write itself is logged, and the original fault
// still wins; last write on the status is an accepted race.
func (e *Engine) abort(ctx context.Context, progress *runProgress, cause error) error {
	if err := progress.Finalize(ctx, domain.RunStatusCanceledByError); err != nil {
		obs.Logger.Error("finalizing faulted run failed", "error", err)
	}
	obs.Logger.Error("dispatch run canceled by error", "error", cause)
	return cause
}
