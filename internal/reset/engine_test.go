package reset

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tansyhq/choreboard/internal/database"
	"github.com/tansyhq/choreboard/internal/model"
	"github.com/tansyhq/choreboard/internal/store"
)

// June 2, 2025 is a Monday.
var (
	monday     = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	tuesday    = monday.AddDate(0, 0, 1)
	thursday   = monday.AddDate(0, 0, 3)
	nextMonday = monday.AddDate(0, 0, 7)
)

type engineEnv struct {
	db      *sql.DB
	engine  *Engine
	chores  *store.ChoreStore
	users   *store.UserStore
	history *store.HistoryStore
}

func setupEngine(t *testing.T) *engineEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &engineEnv{
		db:      db,
		engine:  New(db, store.NewSettingsStore(db), logger),
		chores:  store.NewChoreStore(db),
		users:   store.NewUserStore(db),
		history: store.NewHistoryStore(db),
	}
}

func (e *engineEnv) mustEnsure(t *testing.T, now time.Time) Report {
	t.Helper()
	report, err := e.engine.EnsureCurrent(now)
	if err != nil {
		t.Fatalf("ensure current: %v", err)
	}
	return report
}

func (e *engineEnv) createUser(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := e.users.Create(name, model.RoleStandard, "🙂", "#FF0000")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *engineEnv) createChore(t *testing.T, title, priority, recurrence string) *model.Chore {
	t.Helper()
	c, err := e.chores.Create(title, "", priority, model.PointsForPriority(priority), recurrence, true)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}

func (e *engineEnv) completeChore(t *testing.T, c *model.Chore, userID int64) {
	t.Helper()
	_, err := e.chores.Update(c.ID, c.Title, c.Description, c.Priority, c.RecurrenceType, c.AssignedToAll, true, &userID)
	if err != nil {
		t.Fatalf("complete chore: %v", err)
	}
}

func TestFirstCallInitializesWatermarks(t *testing.T) {
	env := setupEngine(t)

	report := env.mustEnsure(t, monday)
	if !report.DailyReset || !report.WeeklyReset {
		t.Errorf("first call: daily=%v weekly=%v, want both true", report.DailyReset, report.WeeklyReset)
	}
	if report.DailyArchived != 0 || report.WeeklyArchived != 0 {
		t.Errorf("nothing to archive on an empty database, got daily=%d weekly=%d", report.DailyArchived, report.WeeklyArchived)
	}

	report = env.mustEnsure(t, monday)
	if report.DailyReset || report.WeeklyReset {
		t.Errorf("second call same day: daily=%v weekly=%v, want both false", report.DailyReset, report.WeeklyReset)
	}
}

func TestDailyResetArchivesAndClears(t *testing.T) {
	env := setupEngine(t)
	env.mustEnsure(t, monday)

	u := env.createUser(t, "Sam")
	chore := env.createChore(t, "Take out trash", model.PriorityHigh, model.RecurrenceDaily)
	env.completeChore(t, chore, u.ID)

	// Same day: nothing happens.
	report := env.mustEnsure(t, monday)
	if report.DailyReset {
		t.Fatal("daily reset should not run twice on the same day")
	}
	got, _ := env.chores.GetByID(chore.ID)
	if !got.Completed {
		t.Fatal("chore should remain completed within the same day")
	}

	// Next day: archived and cleared.
	report = env.mustEnsure(t, tuesday)
	if !report.DailyReset {
		t.Fatal("expected daily reset on Tuesday")
	}
	if report.WeeklyReset {
		t.Error("weekly reset should not run within the same week")
	}
	if report.DailyArchived != 1 {
		t.Errorf("archived = %d, want 1", report.DailyArchived)
	}

	got, _ = env.chores.GetByID(chore.ID)
	if got.Completed {
		t.Error("chore should be reset to incomplete")
	}
	if got.CompletedBy != nil {
		t.Errorf("completed_by should be nil, got %v", *got.CompletedBy)
	}

	records, err := env.history.ListByUserAndWeek(u.ID, "2025-06-02")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(records))
	}
	if records[0].ChoreID != chore.ID {
		t.Errorf("history chore_id = %d, want %d", records[0].ChoreID, chore.ID)
	}
	// Back-dated to the day that just ended.
	if DateString(records[0].CompletedAt) != "2025-06-02" {
		t.Errorf("completed_at date = %s, want 2025-06-02", DateString(records[0].CompletedAt))
	}
}

func TestDailyResetIsIdempotent(t *testing.T) {
	env := setupEngine(t)
	env.mustEnsure(t, monday)

	u := env.createUser(t, "Sam")
	chore := env.createChore(t, "Dishes", model.PriorityMedium, model.RecurrenceDaily)
	env.completeChore(t, chore, u.ID)

	env.mustEnsure(t, tuesday)
	report := env.mustEnsure(t, tuesday)
	if report.DailyReset {
		t.Error("second call with the same now should be a no-op")
	}

	count, err := env.history.CountByUser(u.ID)
	if err != nil {
		t.Fatalf("count history: %v", err)
	}
	if count != 1 {
		t.Errorf("history rows = %d, want exactly 1", count)
	}
}

func TestMissedDaysCollapseIntoOnePass(t *testing.T) {
	env := setupEngine(t)
	env.mustEnsure(t, monday)

	u := env.createUser(t, "Sam")
	chore := env.createChore(t, "Sweep", model.PriorityLow, model.RecurrenceDaily)
	env.completeChore(t, chore, u.ID)

	// Three days pass with no intermediate requests: one catch-up pass, one
	// archived row, not three.
	report := env.mustEnsure(t, thursday)
	if !report.DailyReset {
		t.Fatal("expected a single catch-up daily reset")
	}
	if report.DailyArchived != 1 {
		t.Errorf("archived = %d, want 1", report.DailyArchived)
	}

	count, _ := env.history.CountByUser(u.ID)
	if count != 1 {
		t.Errorf("history rows = %d, want 1", count)
	}
}

func TestWeeklyRolloverCreditsAllTimePoints(t *testing.T) {
	env := setupEngine(t)
	env.mustEnsure(t, monday)

	u := env.createUser(t, "Sam")
	chore := env.createChore(t, "Mow lawn", model.PriorityHigh, model.RecurrenceWeekly)
	env.completeChore(t, chore, u.ID)

	// Weekly chores survive same-week daily resets.
	env.mustEnsure(t, tuesday)
	got, _ := env.chores.GetByID(chore.ID)
	if !got.Completed {
		t.Fatal("weekly chore should survive a daily reset")
	}

	liveScore, err := env.chores.WeeklyPoints(u.ID)
	if err != nil {
		t.Fatalf("weekly points: %v", err)
	}

	report := env.mustEnsure(t, nextMonday)
	if !report.WeeklyReset {
		t.Fatal("expected weekly reset on the next Monday")
	}
	if report.UsersCredited != 1 {
		t.Errorf("users credited = %d, want 1", report.UsersCredited)
	}

	// The credit equals the live score immediately before the rollover.
	credited, err := env.history.SumCredits(u.ID)
	if err != nil {
		t.Fatalf("sum credits: %v", err)
	}
	if credited != liveScore {
		t.Errorf("credited = %d, want %d", credited, liveScore)
	}

	got, _ = env.chores.GetByID(chore.ID)
	if got.Completed {
		t.Error("weekly chore should be reset after the rollover")
	}

	// Weekly score dropped to zero but all-time is continuous.
	weekly, _ := env.chores.WeeklyPoints(u.ID)
	if weekly != 0 {
		t.Errorf("weekly score after rollover = %d, want 0", weekly)
	}
	if weekly+credited != liveScore {
		t.Errorf("all-time = %d, want %d", weekly+credited, liveScore)
	}

	// Archived under the new week's label, not back-dated.
	records, _ := env.history.ListByUserAndWeek(u.ID, "2025-06-09")
	if len(records) != 1 {
		t.Fatalf("expected 1 weekly history row, got %d", len(records))
	}
	if DateString(records[0].CompletedAt) != "2025-06-09" {
		t.Errorf("completed_at date = %s, want 2025-06-09", DateString(records[0].CompletedAt))
	}
}

func TestWeeklyRolloverSkipsZeroTotals(t *testing.T) {
	env := setupEngine(t)
	env.mustEnsure(t, monday)

	env.createUser(t, "Idle")

	report := env.mustEnsure(t, nextMonday)
	if !report.WeeklyReset {
		t.Fatal("expected weekly reset")
	}
	if report.UsersCredited != 0 {
		t.Errorf("users credited = %d, want 0", report.UsersCredited)
	}
}

func TestOneTimeChoresAreNeverReset(t *testing.T) {
	env := setupEngine(t)
	env.mustEnsure(t, monday)

	u := env.createUser(t, "Sam")
	chore := env.createChore(t, "Clean gutters", model.PriorityMedium, model.RecurrenceOneTime)
	env.completeChore(t, chore, u.ID)

	env.mustEnsure(t, nextMonday)

	got, _ := env.chores.GetByID(chore.ID)
	if !got.Completed {
		t.Error("one-time chore should persist its completed state")
	}
	if got.CompletedBy == nil || *got.CompletedBy != u.ID {
		t.Error("one-time chore should keep completed_by")
	}

	count, _ := env.history.CountByUser(u.ID)
	if count != 0 {
		t.Errorf("one-time chores should never be archived, got %d rows", count)
	}

	// Excluded from rollover: no credit, so the same completion is not
	// re-credited every week.
	credited, _ := env.history.SumCredits(u.ID)
	if credited != 0 {
		t.Errorf("credited = %d, want 0", credited)
	}
}

func TestDailyResetArchivesAssignments(t *testing.T) {
	env := setupEngine(t)
	env.mustEnsure(t, monday)

	alice := env.createUser(t, "Alice")
	bob := env.createUser(t, "Bob")

	chore, err := env.chores.Create("Feed pets", "", model.PriorityMedium, 1, model.RecurrenceDaily, false)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	a1, _ := env.chores.CreateAssignment(chore.ID, alice.ID)
	a2, _ := env.chores.CreateAssignment(chore.ID, bob.ID)
	if _, err := env.chores.SetAssignmentCompleted(a1.ID, true, monday); err != nil {
		t.Fatalf("complete assignment: %v", err)
	}
	if _, err := env.chores.SetAssignmentCompleted(a2.ID, true, monday); err != nil {
		t.Fatalf("complete assignment: %v", err)
	}

	report := env.mustEnsure(t, tuesday)
	if report.DailyArchived != 2 {
		t.Errorf("archived = %d, want 2 (one per assignee)", report.DailyArchived)
	}

	assignments, _ := env.chores.ListAssignmentsByChore(chore.ID)
	for _, a := range assignments {
		if a.Completed {
			t.Errorf("assignment %d should be reset", a.ID)
		}
		if a.CompletedAt != nil {
			t.Errorf("assignment %d completed_at should be nil", a.ID)
		}
	}

	for _, u := range []int64{alice.ID, bob.ID} {
		count, _ := env.history.CountByUser(u)
		if count != 1 {
			t.Errorf("user %d history rows = %d, want 1", u, count)
		}
	}
}

func TestWeekStart(t *testing.T) {
	cases := []struct {
		day  time.Time
		want string
	}{
		{time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), "2025-06-02"},  // Monday
		{time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC), "2025-06-02"}, // Wednesday
		{time.Date(2025, 6, 8, 23, 0, 0, 0, time.UTC), "2025-06-02"}, // Sunday
		{time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), "2025-06-09"},  // next Monday
	}
	for _, tc := range cases {
		if got := WeekStart(tc.day); got != tc.want {
			t.Errorf("WeekStart(%s) = %s, want %s", tc.day.Format("2006-01-02"), got, tc.want)
		}
	}
}
