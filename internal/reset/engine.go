// Package reset implements the lazy recurrence-and-reset engine. There is no
// background scheduler: the engine runs at the top of every chore-listing
// request and decides, from two persisted watermarks, whether a daily or
// weekly calendar boundary has been crossed since the last fully applied
// reset. Crossing a boundary archives live completions into history, credits
// weekly totals into the all-time ledger, and clears completion state.
package reset

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tansyhq/choreboard/internal/store"
)

// Report describes what a single EnsureCurrent pass did.
type Report struct {
	DailyReset     bool `json:"daily_reset"`
	WeeklyReset    bool `json:"weekly_reset"`
	DailyArchived  int  `json:"daily_archived"`
	WeeklyArchived int  `json:"weekly_archived"`
	UsersCredited  int  `json:"users_credited"`
}

type Engine struct {
	db       *sql.DB
	settings *store.SettingsStore
	logger   *slog.Logger

	// Serializes the read-check-then-write sequence so two requests racing
	// a boundary cannot both observe a stale watermark.
	mu sync.Mutex
}

func New(db *sql.DB, settings *store.SettingsStore, logger *slog.Logger) *Engine {
	return &Engine{db: db, settings: settings, logger: logger}
}

// EnsureCurrent runs the daily check then the weekly check against now.
// It is idempotent within a calendar day and week: a second call with the
// same now is a no-op. A watermark that lags by several days or weeks is
// collapsed into a single catch-up pass per cadence, never replayed
// day-by-day; only the most recent live state is archived, under the most
// recent boundary label.
func (e *Engine) EnsureCurrent(now time.Time) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var report Report
	today := DateString(now)
	thisMonday := WeekStart(now)

	lastDate, err := e.settings.Get(store.KeyLastResetDate)
	if err != nil {
		return report, err
	}
	if lastDate != today {
		archived, err := e.runDailyReset(now, today, thisMonday)
		if err != nil {
			return report, fmt.Errorf("daily reset: %w", err)
		}
		report.DailyReset = true
		report.DailyArchived = archived
		e.logger.Info("daily reset applied", "date", today, "archived", archived)
	}

	lastWeek, err := e.settings.Get(store.KeyLastResetWeek)
	if err != nil {
		return report, err
	}
	if lastWeek != thisMonday {
		archived, credited, err := e.runWeeklyReset(now, thisMonday)
		if err != nil {
			return report, fmt.Errorf("weekly reset: %w", err)
		}
		report.WeeklyReset = true
		report.WeeklyArchived = archived
		report.UsersCredited = credited
		e.logger.Info("weekly reset applied", "week_start", thisMonday, "archived", archived, "users_credited", credited)
	}

	return report, nil
}

// runDailyReset archives and clears daily-recurrence completions in one
// transaction. Archived rows are back-dated by a day to attribute the
// completion to the day that just ended.
func (e *Engine) runDailyReset(now time.Time, today, thisMonday string) (int, error) {
	tx, err := e.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	backdated := now.Add(-24 * time.Hour).UTC()

	res, err := tx.Exec(
		`INSERT INTO completion_history (chore_id, user_id, completed_at, week_start_date)
		 SELECT id, completed_by, ?, ? FROM chores
		 WHERE recurrence_type = 'daily' AND completed = 1 AND completed_by IS NOT NULL`,
		backdated, thisMonday,
	)
	if err != nil {
		return 0, fmt.Errorf("archive daily chores: %w", err)
	}
	choreRows, _ := res.RowsAffected()

	res, err = tx.Exec(
		`INSERT INTO completion_history (chore_id, user_id, completed_at, week_start_date)
		 SELECT a.chore_id, a.user_id, ?, ? FROM chore_assignments a
		 JOIN chores c ON c.id = a.chore_id
		 WHERE c.recurrence_type = 'daily' AND a.completed = 1`,
		backdated, thisMonday,
	)
	if err != nil {
		return 0, fmt.Errorf("archive daily assignments: %w", err)
	}
	assignmentRows, _ := res.RowsAffected()

	if _, err := tx.Exec(
		`UPDATE chores SET completed = 0, completed_by = NULL, updated_at = datetime('now')
		 WHERE recurrence_type = 'daily'`,
	); err != nil {
		return 0, fmt.Errorf("reset daily chores: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE chore_assignments SET completed = 0, completed_at = NULL
		 WHERE chore_id IN (SELECT id FROM chores WHERE recurrence_type = 'daily')`,
	); err != nil {
		return 0, fmt.Errorf("reset daily assignments: %w", err)
	}

	if err := setWatermark(tx, store.KeyLastResetDate, today); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(choreRows + assignmentRows), nil
}

// runWeeklyReset credits every user's live weekly total to the all-time
// ledger, then archives and clears weekly-recurrence completions, all in one
// transaction. The credit is computed before anything is cleared, so a
// user's all-time score never drops across the rollover.
func (e *Engine) runWeeklyReset(now time.Time, thisMonday string) (archived, credited int, err error) {
	tx, err := e.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Only recurring completions are credited. One-time chores keep their
	// completed state across rollovers, so including them would re-credit
	// the same completion every week.
	reason := "weekly rollover (week of " + thisMonday + ")"
	res, err := tx.Exec(
		`INSERT INTO all_time_points (user_id, points, reason)
		 SELECT user_id, SUM(points), ? FROM (
		     SELECT completed_by AS user_id, points FROM chores
		     WHERE completed = 1 AND completed_by IS NOT NULL
		       AND recurrence_type IN ('daily', 'weekly')
		     UNION ALL
		     SELECT a.user_id, c.points FROM chore_assignments a
		     JOIN chores c ON c.id = a.chore_id
		     WHERE a.completed = 1 AND c.recurrence_type IN ('daily', 'weekly')
		 ) GROUP BY user_id HAVING SUM(points) != 0`,
		reason,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("credit weekly totals: %w", err)
	}
	creditRows, _ := res.RowsAffected()

	completedAt := now.UTC()

	res, err = tx.Exec(
		`INSERT INTO completion_history (chore_id, user_id, completed_at, week_start_date)
		 SELECT id, completed_by, ?, ? FROM chores
		 WHERE recurrence_type = 'weekly' AND completed = 1 AND completed_by IS NOT NULL`,
		completedAt, thisMonday,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("archive weekly chores: %w", err)
	}
	choreRows, _ := res.RowsAffected()

	res, err = tx.Exec(
		`INSERT INTO completion_history (chore_id, user_id, completed_at, week_start_date)
		 SELECT a.chore_id, a.user_id, ?, ? FROM chore_assignments a
		 JOIN chores c ON c.id = a.chore_id
		 WHERE c.recurrence_type = 'weekly' AND a.completed = 1`,
		completedAt, thisMonday,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("archive weekly assignments: %w", err)
	}
	assignmentRows, _ := res.RowsAffected()

	if _, err := tx.Exec(
		`UPDATE chores SET completed = 0, completed_by = NULL, updated_at = datetime('now')
		 WHERE recurrence_type = 'weekly'`,
	); err != nil {
		return 0, 0, fmt.Errorf("reset weekly chores: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE chore_assignments SET completed = 0, completed_at = NULL
		 WHERE chore_id IN (SELECT id FROM chores WHERE recurrence_type = 'weekly')`,
	); err != nil {
		return 0, 0, fmt.Errorf("reset weekly assignments: %w", err)
	}

	if err := setWatermark(tx, store.KeyLastResetWeek, thisMonday); err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return int(choreRows + assignmentRows), int(creditRows), nil
}

// setWatermark advances a watermark inside the reset transaction, so a
// rollback also rolls back the advance. A committed watermark with uncleared
// chores (or the reverse) can never be observed.
func setWatermark(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set watermark %q: %w", key, err)
	}
	return nil
}

// DateString formats a time as an ISO calendar date.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekStart returns the ISO date of the Monday of t's week.
func WeekStart(t time.Time) string {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return DateString(t.AddDate(0, 0, -offset))
}
