package audit

import (
	"context"
	"sync"
	"time"

	"github.com/zfogg/circle/internal/logger"
	"go.uber.org/zap"
)

// Scheduler runs the auditor periodically in the background
type Scheduler struct {
	auditor  *Auditor
	interval time.Duration
	repair   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler running a every interval. With repair
// set, drifted counters are rewritten instead of only reported.
func NewScheduler(a *Auditor, interval time.Duration, repair bool) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		auditor:  a,
		interval: interval,
		repair:   repair,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the periodic audit
func (s *Scheduler) Start() {
	logger.Log.Info("Starting counter audit",
		zap.Duration("interval", s.interval),
		zap.Bool("repair", s.repair),
	)
	s.wg.Add(1)
	go s.run()
}

// Stop cancels a running pass and waits for the loop to exit
func (s *Scheduler) Stop() {
	logger.Log.Info("Stopping counter audit")
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on startup
	s.RunOnce(s.ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// RunOnce performs a single audit pass and logs what it found
func (s *Scheduler) RunOnce(ctx context.Context) []Drift {
	start := time.Now()

	var (
		drift []Drift
		err   error
	)
	if s.repair {
		drift, err = s.auditor.Repair(ctx)
	} else {
		drift, err = s.auditor.Verify(ctx)
	}
	if err != nil {
		if ctx.Err() == nil {
			logger.Log.Error("Counter audit failed", zap.Error(err))
		}
		return nil
	}

	if len(drift) == 0 {
		logger.Log.Debug("Counter audit clean", zap.Duration("took", time.Since(start)))
		return nil
	}

	for _, d := range drift {
		logger.Log.Warn("Counter drift",
			zap.String("table", d.Table),
			zap.String("id", d.ID),
			zap.String("column", d.Column),
			zap.Int64("stored", d.Stored),
			zap.Int64("expected", d.Expected),
			zap.Bool("repaired", s.repair),
		)
	}
	logger.Log.Info("Counter audit completed",
		zap.Int("drifted", len(drift)),
		zap.Bool("repaired", s.repair),
		zap.Duration("took", time.Since(start)),
	)
	return drift
}
