/*
scheduler.go - Automated reprice scheduler

PURPOSE:
  Periodically reprices projects whose stored runs have gone stale.
  Catalog edits (parts, products, options, profiles) flag every
  referencing project; this scheduler sweeps the flags and stores fresh
  runs so quotes track the current catalog without operator action.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Sweeps projects where needs_reprice is set
  - Storing a fresh run clears the flag; failed projects stay flagged
    and are retried on the next sweep

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRepriceScheduler(store, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: PriceProject endpoint (manual runs)
  - store/sqlite: FlagReferencing* queries that set the flag
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/quote-engine/quote"
	"github.com/warp/quote-engine/store/sqlite"
)

// RepriceScheduler keeps stored price runs current with the catalog.
type RepriceScheduler struct {
	Store         *sqlite.Store
	Log           *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRepriceScheduler creates a new scheduler.
func NewRepriceScheduler(store *sqlite.Store, log *zap.Logger) *RepriceScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RepriceScheduler{
		Store:         store,
		Log:           log,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RepriceScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Log.Info("reprice scheduler disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	rs.Log.Info("reprice scheduler started", zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler.
func (rs *RepriceScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.Log.Info("reprice scheduler stopped")
	}
}

func (rs *RepriceScheduler) run() {
	defer rs.wg.Done()

	// Sweep immediately on start
	rs.sweep()

	for {
		select {
		case <-rs.ticker.C:
			rs.sweep()
		case <-rs.stop:
			return
		}
	}
}

// sweep reprices every flagged project and reports how many succeeded
// and how many failed. Failures stay flagged for the next sweep.
func (rs *RepriceScheduler) sweep() (repriced, failed int) {
	ctx := context.Background()

	projects, err := rs.Store.ListProjectsNeedingReprice(ctx)
	if err != nil {
		rs.Log.Error("reprice sweep failed to list projects", zap.Error(err))
		return 0, 0
	}
	if len(projects) == 0 {
		return 0, 0
	}

	for _, p := range projects {
		if err := rs.repriceProject(ctx, p.ID); err != nil {
			rs.Log.Warn("reprice failed, project stays flagged",
				zap.String("project", p.ID), zap.Error(err))
			failed++
			continue
		}
		repriced++
	}

	rs.Log.Info("reprice sweep completed",
		zap.Int("repriced", repriced), zap.Int("failed", failed))
	return repriced, failed
}

func (rs *RepriceScheduler) repriceProject(ctx context.Context, projectID string) error {
	graph, err := rs.Store.LoadProjectGraph(ctx, projectID)
	if err != nil || graph == nil {
		return err
	}

	started := time.Now()
	q, err := quote.NewCalculator(rs.Store).PriceProject(*graph)
	if err != nil {
		return err
	}

	run, lines := quote.NewPriceRun(q, uuid.NewString(), time.Now().UTC())
	if err := rs.Store.SavePriceRun(ctx, run, lines); err != nil {
		return err
	}
	recordRun(triggerScheduler, lines, time.Since(started))

	rs.Log.Info("repriced project",
		zap.String("project", projectID),
		zap.String("run", run.ID),
		zap.String("grand_total", run.GrandTotal.StringFixed(2)))
	return nil
}

// RunNow triggers an immediate sweep (for testing/admin).
func (rs *RepriceScheduler) RunNow() (repriced, failed int) {
	return rs.sweep()
}
