package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Purger interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// Janitor periodically removes refresh-token records that expired more than
// Retention ago.
type Janitor struct {
	cron      *cron.Cron
	purger    Purger
	retention time.Duration
	timeout   time.Duration
	log       *slog.Logger
}

func New(p Purger, schedule string, retention time.Duration, log *slog.Logger) (*Janitor, error) {
	j := &Janitor{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		purger:    p,
		retention: retention,
		timeout:   time.Minute,
		log:       log,
	}
	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Janitor) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	n, err := j.purger.PurgeExpired(ctx, j.retention)
	if err != nil {
		j.log.Error("purge_failed", "error", err)
		return
	}
	j.log.Info("purge_completed", "deleted", n, "duration_ms", time.Since(start).Milliseconds())
}

// Run blocks until ctx is done, then waits for a running purge to finish.
func (j *Janitor) Run(ctx context.Context) error {
	j.cron.Start()
	<-ctx.Done()
	<-j.cron.Stop().Done()
	return nil
}
