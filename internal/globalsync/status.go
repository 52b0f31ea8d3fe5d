package globalsync

import "time"

// Phase is a state of the global sync workflow.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseImporting     Phase = "importing"
	PhaseRecalculating Phase = "recalculating"
	PhaseRefreshing    Phase = "refreshing"
	PhaseDeleting      Phase = "deleting"
)

// Outcome is how the last workflow ended.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Overlay texts shown while a workflow runs.
const (
	TextImporting     = "Importing from Strava..."
	TextRecalculating = "Recalculating..."
	TextRefreshing    = "Refreshing..."
	TextDone          = "Done!"
	TextDeleting      = "Deleting..."
)

// User-visible failure messages.
const (
	MessageSyncFailed   = "Sync failed."
	MessageDeleteFailed = "Could not delete activity."
)

// Status is the state rendered by the sync overlay.
type Status struct {
	RunID     string    `json:"run_id,omitempty"`
	Phase     Phase     `json:"phase"`
	Text      string    `json:"text"`
	Busy      bool      `json:"busy"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
