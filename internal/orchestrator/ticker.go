package orchestrator

import (
	"context"
	"time"
)

// Run drives the processing thread of §5: a ticker fires at
// frequence_maj_hz, each tick executing one full Tick() call.
func (s *Service) Run(ctx context.Context) {
	hz := s.cfg.UpdateFrequencyHz
	if hz <= 0 {
		hz = 10
	}
	interval := time.Duration(float64(time.Second) / hz)
	deltaT := 1.0 / hz

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("pipeline processing thread started", "frequency_hz", hz, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx, deltaT); err != nil {
				s.logger.Error("tick failed", "error", err)
			}
		}
	}
}

// RunDreamStatusBroadcast periodically publishes a dream-status
// snapshot, independent of the pipeline tick rate. The Dream Engine
// itself is not advanced here: it is ticked only from Service.Tick.
func (s *Service) RunDreamStatusBroadcast(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PublishDreamStatus(); err != nil {
				s.logger.Warn("publish dream status failed", "error", err)
			}
		}
	}
}
