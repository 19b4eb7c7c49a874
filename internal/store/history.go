package store

import (
	"database/sql"
	"fmt"

	"github.com/tansyhq/choreboard/internal/model"
)

// HistoryStore reads the two append-only ledgers: completion_history and
// all_time_points. All writes happen inside the reset engine's transactions;
// nothing in the request path updates or deletes these rows.
type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

const recordCols = `id, chore_id, user_id, completed_at, week_start_date`

func (s *HistoryStore) ListByUserAndWeek(userID int64, weekStart string) ([]model.CompletionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+recordCols+` FROM completion_history WHERE user_id = ? AND week_start_date = ? ORDER BY completed_at DESC`,
		userID, weekStart,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []model.CompletionRecord
	for rows.Next() {
		var r model.CompletionRecord
		if err := rows.Scan(&r.ID, &r.ChoreID, &r.UserID, &r.CompletedAt, &r.WeekStartDate); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *HistoryStore) CountByUser(userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM completion_history WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

// SumCredits returns the total all-time points credited to a user across
// every weekly rollover.
func (s *HistoryStore) SumCredits(userID int64) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM all_time_points WHERE user_id = ?`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum credits: %w", err)
	}
	return int(total.Int64), nil
}

func (s *HistoryStore) ListCredits(userID int64) ([]model.PointCredit, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, points, reason, created_at FROM all_time_points WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	defer rows.Close()

	var credits []model.PointCredit
	for rows.Next() {
		var c model.PointCredit
		if err := rows.Scan(&c.ID, &c.UserID, &c.Points, &c.Reason, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credit: %w", err)
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}
