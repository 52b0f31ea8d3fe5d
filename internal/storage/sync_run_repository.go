package storage

import (
	"context"
	"fmt"

	"github.com/training-dashboard/backend/internal/storage/models"
)

// SyncRunRepository provides data access for global sync history.
type SyncRunRepository struct {
	BaseRepository
}

// NewSyncRunRepository creates a new sync run repository.
func NewSyncRunRepository(db *DB) *SyncRunRepository {
	return &SyncRunRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new run. An empty ID is filled in.
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if run.ID == "" {
		run.ID = GenerateID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = r.Now()
	}
	if run.Status == "" {
		run.Status = models.SyncStatusRunning
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO sync_runs (id, athlete_id, trigger_kind, phase, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, int64(run.AthleteID), run.Trigger, run.Phase,
		run.Status, run.Error, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting sync run: %w", err)
	}
	return nil
}

// Finish stores the final phase, status and error of a run.
func (r *SyncRunRepository) Finish(ctx context.Context, run *models.SyncRun) error {
	if run.FinishedAt == nil {
		now := r.Now()
		run.FinishedAt = &now
	}

	res, err := r.DB().ExecContext(ctx, `
		UPDATE sync_runs SET phase = ?, status = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, run.Phase, run.Status, run.Error, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("updating sync run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sync run %s not found", run.ID)
	}
	return nil
}

// ListRecent returns the most recent runs for an athlete, newest first.
func (r *SyncRunRepository) ListRecent(ctx context.Context, athleteID models.AthleteID, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, athlete_id, trigger_kind, phase, status, error, started_at, finished_at
		FROM sync_runs
		WHERE athlete_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, int64(athleteID), limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	runs := []models.SyncRun{}
	for rows.Next() {
		var run models.SyncRun
		var athlete int64
		if err := rows.Scan(
			&run.ID, &athlete, &run.Trigger, &run.Phase,
			&run.Status, &run.Error, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning sync run: %w", err)
		}
		run.AthleteID = models.AthleteID(athlete)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
