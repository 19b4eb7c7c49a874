// Package scoring resolves which chores a viewer can see and computes the
// weekly and all-time point totals behind the leaderboards.
package scoring

import (
	"fmt"
	"sort"

	"github.com/tansyhq/choreboard/internal/model"
	"github.com/tansyhq/choreboard/internal/store"
)

// Viewer identifies who is asking for a chore list. A nil UserID with
// Admin=false is an anonymous viewer and sees everything unfiltered.
type Viewer struct {
	Admin  bool
	UserID *int64
}

type Resolver struct {
	chores  *store.ChoreStore
	users   *store.UserStore
	history *store.HistoryStore
}

func NewResolver(cs *store.ChoreStore, us *store.UserStore, hs *store.HistoryStore) *Resolver {
	return &Resolver{chores: cs, users: us, history: hs}
}

// ListVisible returns the viewer's chore list, ordered by priority then
// recency, with each chore carrying its full assignment rows.
func (r *Resolver) ListVisible(viewer Viewer) ([]model.ChoreView, error) {
	chores, err := r.chores.List()
	if err != nil {
		return nil, err
	}

	assignments, err := r.chores.ListAssignments()
	if err != nil {
		return nil, err
	}
	byChore := make(map[int64][]model.Assignment)
	for _, a := range assignments {
		byChore[a.ChoreID] = append(byChore[a.ChoreID], a)
	}

	views := make([]model.ChoreView, 0, len(chores))
	for _, c := range chores {
		view := model.ChoreView{Chore: c, Assignments: byChore[c.ID]}
		if view.Assignments == nil {
			view.Assignments = []model.Assignment{}
		}
		if viewer.Admin || viewer.UserID == nil || visibleTo(view, *viewer.UserID) {
			views = append(views, view)
		}
	}
	return views, nil
}

// visibleTo implements the standard-user visibility rule: assigned-to-all
// chores that are incomplete or were completed by this viewer, plus any
// chore the viewer holds an assignment for, whatever its completion state.
func visibleTo(view model.ChoreView, userID int64) bool {
	if view.AssignedToAll {
		if !view.Completed {
			return true
		}
		return view.CompletedBy != nil && *view.CompletedBy == userID
	}
	for _, a := range view.Assignments {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// WeeklyPoints is the user's live score for the current period.
func (r *Resolver) WeeklyPoints(userID int64) (int, error) {
	return r.chores.WeeklyPoints(userID)
}

// AllTimePoints is the live weekly score plus every historical rollover
// credit. Because the reset engine credits the ledger immediately before
// clearing completions, this total is continuous across weekly resets.
func (r *Resolver) AllTimePoints(userID int64) (int, error) {
	weekly, err := r.chores.WeeklyPoints(userID)
	if err != nil {
		return 0, err
	}
	credited, err := r.history.SumCredits(userID)
	if err != nil {
		return 0, err
	}
	return weekly + credited, nil
}

// WeeklyLeaderboard ranks all users by live weekly score, ties broken by name.
func (r *Resolver) WeeklyLeaderboard() ([]model.LeaderboardEntry, error) {
	return r.leaderboard(r.WeeklyPoints)
}

// AllTimeLeaderboard ranks all users by cumulative score.
func (r *Resolver) AllTimeLeaderboard() ([]model.LeaderboardEntry, error) {
	return r.leaderboard(r.AllTimePoints)
}

func (r *Resolver) leaderboard(scoreFn func(int64) (int, error)) ([]model.LeaderboardEntry, error) {
	users, err := r.users.List()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		points, err := scoreFn(u.ID)
		if err != nil {
			return nil, fmt.Errorf("score for user %d: %w", u.ID, err)
		}
		entries = append(entries, model.LeaderboardEntry{
			UserID:      u.ID,
			Name:        u.Name,
			AvatarEmoji: u.AvatarEmoji,
			Color:       u.Color,
			Points:      points,
		})
	}

	// Users come back name-sorted; a stable sort on points keeps name as
	// the tiebreak.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	return entries, nil
}
