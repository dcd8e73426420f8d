package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Round is a finished round: the ball left the screen after Elapsed seconds.
type Round struct {
	ID         int       `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	Difficulty string    `db:"difficulty" json:"difficulty"`
	ElapsedMs  int64     `db:"elapsed_ms" json:"elapsed_ms"`
	Ticks      int       `db:"ticks" json:"ticks"`
	FinalX     float64   `db:"final_x" json:"final_x"`
	FinalY     float64   `db:"final_y" json:"final_y"`
	EndedAt    time.Time `db:"ended_at" json:"ended_at"`
}

// Elapsed returns the round time in seconds.
func (r Round) Elapsed() float64 {
	return float64(r.ElapsedMs) / 1000
}

// AdminAccount is an operator allowed to use the admin routes.
type AdminAccount struct {
	Username    string         `db:"username" json:"username"`
	DisplayName string         `db:"display_name" json:"display_name"`
	TokenHash   string         `db:"token_hash" json:"-"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	AllowedIPs  pq.StringArray `db:"allowed_ips" json:"allowed_ips"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// AdminAudit records one admin request.
type AdminAudit struct {
	ID        int             `db:"id" json:"id"`
	AdminUser string          `db:"admin_username" json:"admin_username"`
	IP        string          `db:"ip" json:"ip"`
	Route     string          `db:"route" json:"route"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details"`
	Success   bool            `db:"success" json:"success"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// RuntimeConfig is a tuning value an admin can change without a redeploy.
type RuntimeConfig struct {
	Key         string         `db:"key" json:"key"`
	Value       string         `db:"value" json:"value"`
	ValueType   string         `db:"value_type" json:"value_type"`
	Description sql.NullString `db:"description" json:"description,omitempty"`
	UpdatedBy   sql.NullString `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
