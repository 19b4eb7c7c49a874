package model

import "time"

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const (
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceOneTime = "one_time"
)

// PointsForPriority derives a chore's point value from its priority.
// The value is frozen at creation; later priority edits do not change it.
func PointsForPriority(priority string) int {
	if priority == PriorityHigh {
		return 2
	}
	return 1
}

type Chore struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Priority       string    `json:"priority"`
	Points         int       `json:"points"`
	RecurrenceType string    `json:"recurrence_type"`
	AssignedToAll  bool      `json:"assigned_to_all"`
	Completed      bool      `json:"completed"`
	CompletedBy    *int64    `json:"completed_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Assignment joins one chore to one user when the chore is not
// assigned-to-all, with its own completion state.
type Assignment struct {
	ID          int64      `json:"id"`
	ChoreID     int64      `json:"chore_id"`
	UserID      int64      `json:"user_id"`
	UserName    string     `json:"user_name,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

// ChoreView is a chore plus its assignment rows, as returned by listings.
type ChoreView struct {
	Chore
	Assignments []Assignment `json:"assignments"`
}
