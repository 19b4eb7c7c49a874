package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tansyhq/choreboard/internal/model"
	"github.com/tansyhq/choreboard/internal/reset"
	"github.com/tansyhq/choreboard/internal/scoring"
	"github.com/tansyhq/choreboard/internal/store"
)

type ChoreHandler struct {
	choreStore *store.ChoreStore
	userStore  *store.UserStore
	resolver   *scoring.Resolver
	engine     *reset.Engine
	logger     *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, us *store.UserStore, resolver *scoring.Resolver, engine *reset.Engine, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{choreStore: cs, userStore: us, resolver: resolver, engine: engine, logger: logger}
}

func validPriority(p string) bool {
	return p == model.PriorityHigh || p == model.PriorityMedium || p == model.PriorityLow
}

func validRecurrence(r string) bool {
	return r == model.RecurrenceDaily || r == model.RecurrenceWeekly || r == model.RecurrenceOneTime
}

// List is the only endpoint that triggers the reset engine. A failed reset
// is logged and swallowed; the listing proceeds with whatever state existed
// before the attempt and the check reruns on the next request.
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.EnsureCurrent(time.Now()); err != nil {
		h.logger.Error("reset check failed", "error", err)
	}

	viewer := scoring.Viewer{}
	if r.URL.Query().Get("is_admin") == "true" {
		viewer.Admin = true
	}
	if idStr := r.URL.Query().Get("user_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
			return
		}
		viewer.UserID = &id
	}

	views, err := h.resolver.ListVisible(viewer)
	if err != nil {
		h.logger.Error("failed to list chores", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list chores"})
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	chore, err := h.choreStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if chore == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}

	assignments, err := h.choreStore.ListAssignmentsByChore(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get assignments"})
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}

	writeJSON(w, http.StatusOK, model.ChoreView{Chore: *chore, Assignments: assignments})
}

type createChoreRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Priority       string  `json:"priority"`
	RecurrenceType string  `json:"recurrence_type"`
	AssignedToAll  *bool   `json:"assigned_to_all"`
	AssignedUsers  []int64 `json:"assigned_users"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createChoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if !validPriority(req.Priority) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "priority must be high, medium, or low"})
		return
	}

	if req.RecurrenceType == "" {
		req.RecurrenceType = model.RecurrenceOneTime
	}
	if !validRecurrence(req.RecurrenceType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recurrence_type must be daily, weekly, or one_time"})
		return
	}

	assignedToAll := len(req.AssignedUsers) == 0
	if req.AssignedToAll != nil {
		assignedToAll = *req.AssignedToAll
	}

	for _, userID := range req.AssignedUsers {
		user, err := h.userStore.GetByID(userID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check user"})
			return
		}
		if user == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "assigned user not found"})
			return
		}
	}

	points := model.PointsForPriority(req.Priority)
	chore, err := h.choreStore.Create(req.Title, req.Description, req.Priority, points, req.RecurrenceType, assignedToAll)
	if err != nil {
		h.logger.Error("failed to create chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create chore"})
		return
	}

	if !assignedToAll {
		for _, userID := range req.AssignedUsers {
			if _, err := h.choreStore.CreateAssignment(chore.ID, userID); err != nil {
				h.logger.Error("failed to create assignment", "chore_id", chore.ID, "user_id", userID, "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create assignment"})
				return
			}
		}
	}

	assignments, err := h.choreStore.ListAssignmentsByChore(chore.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get assignments"})
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}

	writeJSON(w, http.StatusCreated, model.ChoreView{Chore: *chore, Assignments: assignments})
}

type updateChoreRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Priority       *string `json:"priority"`
	RecurrenceType *string `json:"recurrence_type"`
	AssignedToAll  *bool   `json:"assigned_to_all"`
	Completed      *bool   `json:"completed"`
	CompletedBy    *int64  `json:"completed_by"`
}

// Update is a partial update: absent fields keep their current values.
// Points are deliberately not recomputed when priority changes.
func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.choreStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}

	var req updateChoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	title := existing.Title
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}
	if title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	description := existing.Description
	if req.Description != nil {
		description = *req.Description
	}

	priority := existing.Priority
	if req.Priority != nil {
		priority = *req.Priority
	}
	if !validPriority(priority) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "priority must be high, medium, or low"})
		return
	}

	recurrence := existing.RecurrenceType
	if req.RecurrenceType != nil {
		recurrence = *req.RecurrenceType
	}
	if !validRecurrence(recurrence) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recurrence_type must be daily, weekly, or one_time"})
		return
	}

	assignedToAll := existing.AssignedToAll
	if req.AssignedToAll != nil {
		assignedToAll = *req.AssignedToAll
	}

	completed := existing.Completed
	if req.Completed != nil {
		completed = *req.Completed
	}

	completedBy := existing.CompletedBy
	if req.CompletedBy != nil {
		completedBy = req.CompletedBy
	}

	chore, err := h.choreStore.Update(id, title, description, priority, recurrence, assignedToAll, completed, completedBy)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update chore"})
		return
	}

	writeJSON(w, http.StatusOK, chore)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.choreStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}

	if err := h.choreStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete chore"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "chore deleted"})
}

// CompleteAssignment toggles one assignment's completion state.
func (h *ChoreHandler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	assignment, err := h.choreStore.GetAssignmentByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get assignment"})
		return
	}
	if assignment == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assignment not found"})
		return
	}

	updated, err := h.choreStore.SetAssignmentCompleted(id, !assignment.Completed, time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update assignment"})
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

type splitRequest struct {
	UserAID int64 `json:"user_a_id"`
	UserBID int64 `json:"user_b_id"`
}

// SplitChore converts a group-visible chore into per-user assignments for
// both participants. Each will earn the chore's full point value.
func (h *ChoreHandler) SplitChore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req splitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.UserAID == 0 || req.UserBID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_a_id and user_b_id are required"})
		return
	}
	if req.UserAID == req.UserBID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot split a chore with yourself"})
		return
	}

	h.split(w, id, req.UserAID, req.UserBID)
}

// SplitAssignment splits starting from an existing assignment: the
// assignment's holder is the first participant, the request names the second.
func (h *ChoreHandler) SplitAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	assignment, err := h.choreStore.GetAssignmentByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get assignment"})
		return
	}
	if assignment == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assignment not found"})
		return
	}
	if assignment.Completed {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "assignment is already completed"})
		return
	}

	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.UserID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	if req.UserID == assignment.UserID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot split a chore with yourself"})
		return
	}

	h.split(w, assignment.ChoreID, assignment.UserID, req.UserID)
}

func (h *ChoreHandler) split(w http.ResponseWriter, choreID, userA, userB int64) {
	for _, userID := range []int64{userA, userB} {
		user, err := h.userStore.GetByID(userID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check user"})
			return
		}
		if user == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user not found"})
			return
		}
	}

	err := h.choreStore.Split(choreID, userA, userB)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
	case errors.Is(err, store.ErrChoreCompleted):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot split a completed chore"})
	case errors.Is(err, store.ErrAlreadyAssigned):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user already has an assignment for this chore"})
	case err != nil:
		h.logger.Error("failed to split chore", "chore_id", choreID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to split chore"})
	default:
		assignments, err := h.choreStore.ListAssignmentsByChore(choreID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get assignments"})
			return
		}
		writeJSON(w, http.StatusOK, assignments)
	}
}
