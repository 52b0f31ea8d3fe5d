package models

import "time"

// SyncRun records one global sync attempt.
type SyncRun struct {
	ID         string     `json:"id"`
	AthleteID  AthleteID  `json:"athlete_id"`
	Trigger    string     `json:"trigger"`
	Phase      string     `json:"phase"`
	Status     string     `json:"status"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Sync triggers.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// SyncStatus constants
const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)
