package job

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper is a store of expiring entries.
type Sweeper interface {
	Sweep() int
}

// PendingSweeper reclaims expired delete confirmations from the in-memory
// pending store. The Redis store expires keys itself and needs no sweeper.
type PendingSweeper struct {
	store    Sweeper
	log      logrus.FieldLogger
	stopCh   chan struct{}
	interval time.Duration
}

func NewPendingSweeper(store Sweeper, interval time.Duration, log logrus.FieldLogger) *PendingSweeper {
	return &PendingSweeper{
		store:    store,
		log:      log.WithField("job", "pending_sweeper"),
		stopCh:   make(chan struct{}),
		interval: interval,
	}
}

func (j *PendingSweeper) Start(ctx context.Context) {
	j.log.Info("pending sweeper started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("context done, pending sweeper exiting")
			return
		case <-j.stopCh:
			j.log.Info("pending sweeper stopped")
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *PendingSweeper) Stop() {
	close(j.stopCh)
}

func (j *PendingSweeper) sweep() {
	if n := j.store.Sweep(); n > 0 {
		j.log.WithField("removed", n).Debug("expired delete confirmations removed")
	}
}
