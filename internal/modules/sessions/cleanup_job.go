package sessions

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const cleanupTimeout = 30 * time.Second

// SweepObserver receives the outcome of each sweep.
type SweepObserver interface {
	ObserveSweep(deleted int64, remaining int)
}

// CleanupJob removes expired sessions.
// It is scheduled by the server on the RISK_SESSION_SWEEP spec.
type CleanupJob struct {
	repo     *Repository
	observer SweepObserver
	log      zerolog.Logger
}

// NewCleanupJob creates a new session cleanup job. observer may be nil.
func NewCleanupJob(repo *Repository, observer SweepObserver, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:     repo,
		observer: observer,
		log:      log.With().Str("job", "session_cleanup").Logger(),
	}
}

// Run executes the cleanup job.
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	deleted, err := j.repo.DeleteExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired sessions")
		return err
	}

	remaining, err := j.repo.Count(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to count sessions")
		return err
	}
	if j.observer != nil {
		j.observer.ObserveSweep(deleted, remaining)
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Int("remaining", remaining).
			Msg("Session cleanup completed")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "session_cleanup"
}
