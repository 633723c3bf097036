package dream

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"psyche/internal/domain"
	"psyche/internal/memory"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.CyclePeriodSeconds = 100
	cfg.DreamRatio = 0.4
	cfg.ScanRatio = 0.1
	cfg.ConsolidateRatio = 0.4
	cfg.ExploreRatio = 0.4
	cfg.CleanupRatio = 0.1
	cfg.MinTimeSinceLastDreamSeconds = 0
	cfg.MaxEmotionalActivityForDream = 1.0
	return cfg
}

func TestShouldStartDreamRequiresNonEmptyMCT(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	mct := memory.NewManager()
	eng := New(smallConfig(), mct, clock, testLogger())

	eng.Tick(domain.EmotionVector{}, domain.PhaseSerenite, false)
	if eng.State() != domain.DreamAwake {
		t.Fatalf("expected to stay AWAKE with empty MCT, got %v", eng.State())
	}

	mct.Record(domain.Memory{ID: "m1"}, 0)
	eng.Tick(domain.EmotionVector{}, domain.PhaseSerenite, false)
	if eng.State() != domain.DreamScan {
		t.Fatalf("expected DREAM_SCAN once MCT non-empty, got %v", eng.State())
	}
}

func TestDreamBlockedDuringPeur(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	mct := memory.NewManager()
	mct.Record(domain.Memory{ID: "m1"}, 0)
	eng := New(smallConfig(), mct, clock, testLogger())

	eng.Tick(domain.EmotionVector{}, domain.PhasePeur, false)
	if eng.State() != domain.DreamAwake {
		t.Fatalf("expected dream blocked during PEUR, got %v", eng.State())
	}
}

func TestDreamBlockedDuringAlert(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	mct := memory.NewManager()
	mct.Record(domain.Memory{ID: "m1"}, 0)
	eng := New(smallConfig(), mct, clock, testLogger())

	eng.Tick(domain.EmotionVector{}, domain.PhaseSerenite, true)
	if eng.State() != domain.DreamAwake {
		t.Fatalf("expected dream blocked while alert is set, got %v", eng.State())
	}
	if eng.CanStartDream() {
		t.Fatalf("expected CanStartDream false while alert is set")
	}

	eng.Tick(domain.EmotionVector{}, domain.PhaseSerenite, false)
	if eng.State() != domain.DreamScan {
		t.Fatalf("expected DREAM_SCAN once alert clears, got %v", eng.State())
	}
}

func TestFullCycleRunsPhasesInOrder(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	mct := memory.NewManager()
	mct.Record(domain.Memory{ID: "m1", Usage: 2}, 0)
	mct.Record(domain.Memory{ID: "m2", Usage: 1}, 0)
	eng := New(smallConfig(), mct, clock, testLogger())

	eng.Tick(domain.EmotionVector{}, domain.PhaseSerenite, false)
	if eng.State() != domain.DreamScan {
		t.Fatalf("expected DREAM_SCAN, got %v", eng.State())
	}

	order := []domain.DreamState{domain.DreamConsolidate, domain.DreamExplore, domain.DreamCleanup, domain.DreamAwake}
	durations := []float64{
		eng.cfg.ScanDurationSeconds(),
		eng.cfg.ConsolidateDurationSeconds(),
		eng.cfg.ExploreDurationSeconds(),
		eng.cfg.CleanupDurationSeconds(),
	}
	for i, want := range order {
		clock.advance(time.Duration(durations[i]*float64(time.Second)) + time.Millisecond)
		eng.Tick(domain.EmotionVector{}, domain.PhaseSerenite, false)
		if eng.State() != want {
			t.Fatalf("step %d: expected %v, got %v", i, want, eng.State())
		}
	}

	if eng.Stats().CyclesCompleted != 1 {
		t.Fatalf("expected 1 completed cycle, got %d", eng.Stats().CyclesCompleted)
	}
	if mct.Len() != 0 {
		t.Fatalf("expected MCT cleared after CLEANUP, got %d entries", mct.Len())
	}
}

func TestAlertInterruptsDreamingState(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	mct := memory.NewManager()
	mct.Record(domain.Memory{ID: "m1"}, 0)
	eng := New(smallConfig(), mct, clock, testLogger())

	eng.Tick(domain.EmotionVector{}, domain.PhaseSerenite, false)
	if eng.State() != domain.DreamScan {
		t.Fatalf("expected DREAM_SCAN, got %v", eng.State())
	}

	eng.Tick(domain.EmotionVector{}, domain.PhaseSerenite, true)
	if eng.State() != domain.DreamInterrupted {
		t.Fatalf("expected INTERRUPTED on alert, got %v", eng.State())
	}
	if eng.Stats().Interruptions != 1 {
		t.Fatalf("expected 1 interruption recorded, got %d", eng.Stats().Interruptions)
	}

	eng.Tick(domain.EmotionVector{}, domain.PhaseSerenite, false)
	if eng.State() != domain.DreamAwake {
		t.Fatalf("expected AWAKE after alert clears, got %v", eng.State())
	}
}

func TestTraumaNeverDeletedDuringCleanup(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	mct := memory.NewManager()
	mct.Record(domain.Memory{ID: "trauma", IsTrauma: true}, 0)
	eng := New(smallConfig(), mct, clock, testLogger())

	forgotten := false
	go func() {
		for cmd := range eng.Commands() {
			if cmd.Kind == domain.DreamCommandForget && cmd.Memory.ID == "trauma" {
				forgotten = true
			}
		}
	}()

	eng.Tick(domain.EmotionVector{}, domain.PhaseSerenite, false)
	durations := []float64{
		eng.cfg.ScanDurationSeconds(),
		eng.cfg.ConsolidateDurationSeconds(),
		eng.cfg.ExploreDurationSeconds(),
		eng.cfg.CleanupDurationSeconds(),
	}
	for _, d := range durations {
		clock.advance(time.Duration(d*float64(time.Second)) + time.Millisecond)
		eng.Tick(domain.EmotionVector{}, domain.PhaseSerenite, false)
	}

	if forgotten {
		t.Fatalf("expected trauma memory to never be forgotten")
	}
}
