package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tansyhq/choreboard/internal/handler"
	"github.com/tansyhq/choreboard/internal/middleware"
	"github.com/tansyhq/choreboard/internal/reset"
	"github.com/tansyhq/choreboard/internal/scoring"
	"github.com/tansyhq/choreboard/internal/store"
)

type Server struct {
	db           *sql.DB
	choreH       *handler.ChoreHandler
	userH        *handler.UserHandler
	leaderboardH *handler.LeaderboardHandler
	logger       *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Server {
	choreStore := store.NewChoreStore(db)
	userStore := store.NewUserStore(db)
	historyStore := store.NewHistoryStore(db)
	settingsStore := store.NewSettingsStore(db)

	engine := reset.New(db, settingsStore, logger.With("component", "reset"))
	resolver := scoring.NewResolver(choreStore, userStore, historyStore)

	return &Server{
		db:           db,
		choreH:       handler.NewChoreHandler(choreStore, userStore, resolver, engine, logger.With("component", "chore")),
		userH:        handler.NewUserHandler(userStore, choreStore, historyStore, logger.With("component", "user")),
		leaderboardH: handler.NewLeaderboardHandler(resolver),
		logger:       logger,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Chore API routes. Listing is the reset engine's only trigger; write
	// endpoints deliberately do not run the boundary check.
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("POST /api/chores/{id}/split", s.choreH.SplitChore)
	mux.HandleFunc("PUT /api/chores/assignment/{id}/complete", s.choreH.CompleteAssignment)
	mux.HandleFunc("POST /api/chores/assignment/{id}/split", s.choreH.SplitAssignment)

	// User API routes
	mux.HandleFunc("GET /api/users", s.userH.List)
	mux.HandleFunc("POST /api/users", s.userH.Create)
	mux.HandleFunc("PUT /api/users/{id}", s.userH.Update)
	mux.HandleFunc("GET /api/users/{id}/history", s.userH.History)
	mux.HandleFunc("POST /api/users/{id}/points/adjust", s.userH.AdjustPoints)
	mux.HandleFunc("POST /api/users/{id}/pin", s.userH.SetPIN)
	mux.HandleFunc("POST /api/users/{id}/pin/verify", s.userH.VerifyPIN)

	// Leaderboards
	mux.HandleFunc("GET /api/leaderboard", s.leaderboardH.Weekly)
	mux.HandleFunc("GET /api/leaderboard/all-time", s.leaderboardH.AllTime)

	mux.HandleFunc("GET /health", s.healthHandler)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
