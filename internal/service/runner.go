package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"folio/internal/models"
)

// LedgerSource supplies the transaction ledger for a run.
type LedgerSource interface {
	Fetch(ctx context.Context) ([]models.Transaction, error)
}

// Result is one completed valuation run. The serving layer only ever sees a
// whole Result, swapped in on completion; a partially built series is never
// visible.
type Result struct {
	RunID       string                 `json:"run_id"`
	CompletedAt time.Time              `json:"completed_at"`
	Series      []models.DailySnapshot `json:"series"`
}

type Runner struct {
	driver *Driver
	source LedgerSource
	log    *logrus.Logger

	mu     sync.Mutex
	latest atomic.Value
}

func NewRunner(driver *Driver, source LedgerSource, log *logrus.Logger) *Runner {
	return &Runner{driver: driver, source: source, log: log}
}

// Run executes one end-to-end valuation. The mutex enforces the single-writer
// assumption of the cache and resolver: at most one run at a time per process.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.NewString()
	started := time.Now()

	txs, err := r.source.Fetch(ctx)
	if err != nil {
		r.log.Errorf("run %s: ledger fetch failed: %v", runID, err)
		return err
	}
	series, err := r.driver.Run(ctx, txs)
	if err != nil {
		r.log.Errorf("run %s aborted: %v", runID, err)
		return err
	}

	r.latest.Store(&Result{RunID: runID, CompletedAt: time.Now().UTC(), Series: series})
	r.log.Infof("run %s: %d transactions, %d days in %s", runID, len(txs), len(series), time.Since(started).Round(time.Millisecond))
	return nil
}

// Latest returns the most recently completed run, if any.
func (r *Runner) Latest() (*Result, bool) {
	v := r.latest.Load()
	if v == nil {
		return nil, false
	}
	return v.(*Result), true
}

// Start re-runs the valuation on a fixed interval until ctx is done. Failures
// leave the previous result in place and are retried on the next tick.
func (r *Runner) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.log.Info("revaluation loop stopping")
				return
			case <-ticker.C:
				if err := r.Run(ctx); err != nil {
					r.log.Warnf("scheduled revaluation failed: %v", err)
				}
			}
		}
	}()
}
