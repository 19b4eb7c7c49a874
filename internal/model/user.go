package model

import "time"

const (
	RoleAdmin    = "admin"
	RoleStandard = "standard"
)

type User struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	AvatarEmoji string    `json:"avatar_emoji"`
	Color       string    `json:"color"`
	HasPIN      bool      `json:"has_pin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LeaderboardEntry is one user's row on the weekly or all-time leaderboard.
type LeaderboardEntry struct {
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	AvatarEmoji string `json:"avatar_emoji"`
	Color       string `json:"color"`
	Points      int    `json:"points"`
}
