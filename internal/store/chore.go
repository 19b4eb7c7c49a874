package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tansyhq/choreboard/internal/model"
)

var (
	// ErrChoreCompleted is returned by Split when the target chore has
	// already been completed.
	ErrChoreCompleted = errors.New("chore is already completed")
	// ErrAlreadyAssigned is returned by Split when a participant already
	// holds an assignment for the chore.
	ErrAlreadyAssigned = errors.New("user already has an assignment for this chore")
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

// --- Chore methods ---

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var completedBy sql.NullInt64

	err := scanner.Scan(
		&c.ID, &c.Title, &c.Description, &c.Priority, &c.Points,
		&c.RecurrenceType, &c.AssignedToAll, &c.Completed, &completedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedBy.Valid {
		c.CompletedBy = &completedBy.Int64
	}
	return &c, nil
}

const choreCols = `id, title, description, priority, points, recurrence_type, assigned_to_all, completed, completed_by, created_at, updated_at`

// choreOrder sorts by priority (high, medium, low) then newest first.
const choreOrder = `ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, created_at DESC, id DESC`

func (s *ChoreStore) Create(title, description, priority string, points int, recurrenceType string, assignedToAll bool) (*model.Chore, error) {
	result, err := s.db.Exec(
		`INSERT INTO chores (title, description, priority, points, recurrence_type, assigned_to_all) VALUES (?, ?, ?, ?, ?, ?)`,
		title, description, priority, points, recurrenceType, assignedToAll,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// CreateAdjustment inserts a synthetic completed one-time chore crediting
// (or debiting) a user. Used by the admin point adjustment endpoint.
func (s *ChoreStore) CreateAdjustment(title string, points int, userID int64) (*model.Chore, error) {
	result, err := s.db.Exec(
		`INSERT INTO chores (title, description, priority, points, recurrence_type, assigned_to_all, completed, completed_by)
		 VALUES (?, '', 'medium', ?, 'one_time', 1, 1, ?)`,
		title, points, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert adjustment chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) List() ([]model.Chore, error) {
	rows, err := s.db.Query(`SELECT ` + choreCols + ` FROM chores ` + choreOrder)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// Update writes the full field set. A completed=false write always clears
// completed_by, preserving the completed => completed_by invariant.
func (s *ChoreStore) Update(id int64, title, description, priority string, recurrenceType string, assignedToAll, completed bool, completedBy *int64) (*model.Chore, error) {
	var cBy sql.NullInt64
	if completed && completedBy != nil {
		cBy = sql.NullInt64{Int64: *completedBy, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE chores SET title = ?, description = ?, priority = ?, recurrence_type = ?, assigned_to_all = ?, completed = ?, completed_by = ?, updated_at = datetime('now') WHERE id = ?`,
		title, description, priority, recurrenceType, assignedToAll, completed, cBy, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// --- Assignment methods ---

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var completedAt sql.NullTime

	err := scanner.Scan(&a.ID, &a.ChoreID, &a.UserID, &a.UserName, &a.Completed, &completedAt)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}

const assignmentCols = `a.id, a.chore_id, a.user_id, u.name, a.completed, a.completed_at`

const assignmentJoin = `FROM chore_assignments a JOIN users u ON u.id = a.user_id`

func (s *ChoreStore) CreateAssignment(choreID, userID int64) (*model.Assignment, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_assignments (chore_id, user_id) VALUES (?, ?)`,
		choreID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAssignmentByID(id)
}

func (s *ChoreStore) GetAssignmentByID(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` `+assignmentJoin+` WHERE a.id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// ListAssignments returns every assignment row with the assignee's name
// resolved, grouped by chore for the listing views.
func (s *ChoreStore) ListAssignments() ([]model.Assignment, error) {
	rows, err := s.db.Query(`SELECT ` + assignmentCols + ` ` + assignmentJoin + ` ORDER BY a.chore_id, a.id`)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

func (s *ChoreStore) ListAssignmentsByChore(choreID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(`SELECT `+assignmentCols+` `+assignmentJoin+` WHERE a.chore_id = ? ORDER BY a.id`, choreID)
	if err != nil {
		return nil, fmt.Errorf("list assignments by chore: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// SetAssignmentCompleted flips one assignment's completion state, stamping
// or clearing completed_at to match.
func (s *ChoreStore) SetAssignmentCompleted(id int64, completed bool, now time.Time) (*model.Assignment, error) {
	var completedAt any
	if completed {
		completedAt = now.UTC()
	}

	_, err := s.db.Exec(
		`UPDATE chore_assignments SET completed = ?, completed_at = ? WHERE id = ?`,
		completed, completedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("set assignment completed: %w", err)
	}
	return s.GetAssignmentByID(id)
}

func (s *ChoreStore) AssignmentExists(choreID, userID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chore_assignments WHERE chore_id = ? AND user_id = ?`,
		choreID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check assignment exists: %w", err)
	}
	return count > 0, nil
}

// WeeklyPoints sums a user's live (unreset) score: direct chore completions
// plus completed assignments. A split chore appears once per participant, so
// each side earns the full point value.
func (s *ChoreStore) WeeklyPoints(userID int64) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM (
		     SELECT points FROM chores WHERE completed = 1 AND completed_by = ?
		     UNION ALL
		     SELECT c.points FROM chore_assignments a
		     JOIN chores c ON c.id = a.chore_id
		     WHERE a.completed = 1 AND a.user_id = ?
		 )`,
		userID, userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum weekly points: %w", err)
	}
	return int(total.Int64), nil
}

// Split converts a chore into an assignment-based one and gives both
// participants their own assignment row, so each earns full points
// independently. Rejects completed chores and duplicate participants.
func (s *ChoreStore) Split(choreID, userA, userB int64) error {
	chore, err := s.GetByID(choreID)
	if err != nil {
		return err
	}
	if chore == nil {
		return sql.ErrNoRows
	}
	if chore.Completed {
		return ErrChoreCompleted
	}

	existsB, err := s.AssignmentExists(choreID, userB)
	if err != nil {
		return err
	}
	if existsB {
		return ErrAlreadyAssigned
	}

	existsA, err := s.AssignmentExists(choreID, userA)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE chores SET assigned_to_all = 0, updated_at = datetime('now') WHERE id = ?`, choreID); err != nil {
		return fmt.Errorf("unset assigned_to_all: %w", err)
	}

	if !existsA {
		if _, err := tx.Exec(`INSERT INTO chore_assignments (chore_id, user_id) VALUES (?, ?)`, choreID, userA); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO chore_assignments (chore_id, user_id) VALUES (?, ?)`, choreID, userB); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	return tx.Commit()
}
