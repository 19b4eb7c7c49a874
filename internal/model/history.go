package model

import "time"

// CompletionRecord is an immutable archival row written by the reset engine
// at the moment a completion is about to be cleared.
type CompletionRecord struct {
	ID            int64     `json:"id"`
	ChoreID       int64     `json:"chore_id"`
	UserID        int64     `json:"user_id"`
	CompletedAt   time.Time `json:"completed_at"`
	WeekStartDate string    `json:"week_start_date"`
}

// PointCredit is an immutable all-time points ledger row, written by the
// weekly rollover.
type PointCredit struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
