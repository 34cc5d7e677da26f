package service

import (
	"context"
	"sync"

	"github.com/restocklabs/restock-dispatch/internal/core/domain"
	"github.com/restocklabs/restock-dispatch/internal/port"
)

// runProgress funnels cursor and status writes for one run through a single
// lock. The cursor only ever advances: a slow worker reporting a low user id
// can never overwrite a higher cursor already persisted by a faster one, so
// the stored value always names a recipient that actually completed.
type runProgress struct {
	mu   sync.Mutex
	run  *domain.DispatchRun
	runs port.RunStore
}

func newRunProgress(run *domain.DispatchRun, runs port.RunStore) *runProgress {
	return &runProgress{run: run, runs: runs}
}

// Advance moves the cursor to userID and persists the run. Calls with an id
// at or below the current cursor are no-ops.
func (p *runProgress) Advance(ctx context.Context, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run.LastNotifiedUserID != nil && *p.run.LastNotifiedUserID >= userID {
		return nil
	}
	uid := userID
	p.run.LastNotifiedUserID = &uid
	return p.runs.SaveRun(ctx, p.run)
}

// Finalize sets the terminal status and persists the run.
func (p *runProgress) Finalize(ctx context.Context, status domain.RunStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.run.Status = status
	return p.runs.SaveRun(ctx, p.run)
}

// Summary snapshots the run for callers.
func (p *runProgress) Summary() *domain.RunSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run.Summary()
}
