package domain

import "time"

type RunStatus string

const (
	RunStatusInProgress      RunStatus = "IN_PROGRESS"
	RunStatusNoActiveUsers   RunStatus = "NO_ACTIVE_USERS"
	RunStatusCanceledSoldOut RunStatus = "CANCELED_BY_SOLD_OUT"
	RunStatusCanceledByError RunStatus = "CANCELED_BY_ERROR"
	RunStatusCompleted       RunStatus = "COMPLETED"
)

// Terminal reports whether the status is final. A finalized run is never
// reopened; a manual re-drive advances the cursor inside the same record.
func (s RunStatus) Terminal() bool {
	return s != RunStatusInProgress
}

// DispatchRun is the persisted record of one notification run for one
// restock round. LastNotifiedUserID is the resumption cursor: the highest
// user id that was fully processed, or nil before the first one.
type DispatchRun struct {
	ID                 string
	ProductID          int64
	RestockRound       int
	Status             RunStatus
	LastNotifiedUserID *int64
	CreatedAt          time.Time
}

// RunSummary is what the trigger surface returns to callers.
type RunSummary struct {
	RunID              string    `json:"run_id"`
	ProductID          int64     `json:"product_id"`
	RestockRound       int       `json:"restock_round"`
	Status             RunStatus `json:"status"`
	LastNotifiedUserID *int64    `json:"last_notified_user_id"`
}

func (r *DispatchRun) Summary() *RunSummary {
	return &RunSummary{
		RunID:              r.ID,
		ProductID:          r.ProductID,
		RestockRound:       r.RestockRound,
		Status:             r.Status,
		LastNotifiedUserID: r.LastNotifiedUserID,
	}
}
