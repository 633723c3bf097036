// Package dream implements the Dream Cycle Engine (4.G): a circadian
// state machine that periodically scans, consolidates, associates, and
// forgets the memories accumulated in the short-term buffer (MCT).
//
// Grounded on reves/DreamEngine.cpp/.hpp and reves/DreamConfig.hpp. The
// original's wall-clock-based timing is replaced, per Design Notes §9,
// with a TimeProvider abstraction so dream cycles are deterministic
// under test; the mutex-guarded single-state-object pattern and the
// Neo4j persistence callbacks are kept, the latter generalized into a
// single buffered DreamCommand channel (matching internal/phase's
// registered-sink idiom) instead of five separate callback setters.
package dream

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"psyche/internal/domain"
	"psyche/internal/memory"
)

// TimeProvider abstracts the monotonic clock the engine measures phase
// and cycle elapsed time against, so tests can advance time explicitly
// instead of sleeping real seconds.
type TimeProvider interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock is the production TimeProvider.
var RealClock TimeProvider = realClock{}

// Engine is the Dream Cycle state machine. One Engine instance backs one
// pipeline and shares its memory buffer with the orchestrator.
type Engine struct {
	cfg    Config
	clock  TimeProvider
	logger *slog.Logger
	rng    *rand.Rand

	mct *memory.Manager

	mu                  sync.Mutex
	state               domain.DreamState
	cycleStart          time.Time
	phaseStart          time.Time
	lastDreamEnd        time.Time
	currentEmotions     domain.EmotionVector
	activePhase         domain.Phase
	alert               bool
	scoredMemories      []domain.Memory
	causalLinks         []domain.CausalLink
	stats               domain.DreamStats

	commands chan domain.DreamCommand
}

// New constructs an Engine bound to mct. now is the initial clock
// reading, used to seed cycle/phase/lastDreamEnd timers.
func New(cfg Config, mct *memory.Manager, clock TimeProvider, logger *slog.Logger) *Engine {
	if clock == nil {
		clock = RealClock
	}
	now := clock.Now()
	return &Engine{
		cfg:          cfg,
		clock:        clock,
		logger:       logger,
		rng:          rand.New(rand.NewSource(now.UnixNano())),
		mct:          mct,
		state:        domain.DreamAwake,
		cycleStart:   now,
		phaseStart:   now,
		lastDreamEnd: now,
		commands:     make(chan domain.DreamCommand, 256),
	}
}

// Commands exposes the channel of outbound dream commands (consolidate,
// create_edge, reinforce_edge, forget) for the orchestrator to forward
// onto the bus.
func (e *Engine) Commands() <-chan domain.DreamCommand {
	return e.commands
}

func (e *Engine) emit(cmd domain.DreamCommand) {
	select {
	case e.commands <- cmd:
	default:
		e.logger.Warn("dream command dropped, channel full", "kind", cmd.Kind)
	}
}

// Tick delivers one pipeline tick's worth of state to the engine (§4.H
// step 11: "deliver tick to Dream Engine with (E, active_phase,
// alert)"). It never blocks the caller beyond the engine's own mutex.
func (e *Engine) Tick(current domain.EmotionVector, activePhase domain.Phase, alert bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.currentEmotions = current
	e.activePhase = activePhase
	e.alert = alert
	now := e.clock.Now()

	if alert && e.state.IsDreaming() {
		e.transitionLocked(domain.DreamInterrupted)
		e.stats.Interruptions++
		return
	}

	if e.state == domain.DreamInterrupted && !alert {
		e.transitionLocked(domain.DreamAwake)
		e.lastDreamEnd = now
		return
	}

	if e.state == domain.DreamAwake {
		if e.shouldStartDreamLocked(now) {
			e.transitionLocked(domain.DreamScan)
			e.phaseStart = now
		}
		return
	}

	if !e.state.IsDreaming() {
		return
	}

	elapsed := now.Sub(e.phaseStart).Seconds()
	switch e.state {
	case domain.DreamScan:
		if elapsed >= e.cfg.ScanDurationSeconds() {
			e.executeScanLocked()
			e.transitionLocked(domain.DreamConsolidate)
			e.phaseStart = now
		}
	case domain.DreamConsolidate:
		if elapsed >= e.cfg.ConsolidateDurationSeconds() {
			e.executeConsolidateLocked()
			e.transitionLocked(domain.DreamExplore)
			e.phaseStart = now
		}
	case domain.DreamExplore:
		if elapsed >= e.cfg.ExploreDurationSeconds() {
			e.executeExploreLocked()
			e.transitionLocked(domain.DreamCleanup)
			e.phaseStart = now
		}
	case domain.DreamCleanup:
		if elapsed >= e.cfg.CleanupDurationSeconds() {
			e.executeCleanupLocked()
			e.transitionLocked(domain.DreamAwake)
			e.lastDreamEnd = now
			e.cycleStart = now
			e.stats.CyclesCompleted++
		}
	}
}

// ForceStart starts a dream cycle unconditionally from AWAKE, for the
// force_dream_start control command.
func (e *Engine) ForceStart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == domain.DreamAwake {
		e.transitionLocked(domain.DreamScan)
		e.phaseStart = e.clock.Now()
	}
}

// Interrupt forces an interruption, for the interrupt_dream control
// command.
func (e *Engine) Interrupt() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.IsDreaming() {
		e.transitionLocked(domain.DreamInterrupted)
		e.stats.Interruptions++
	}
}

func (e *Engine) transitionLocked(next domain.DreamState) {
	if e.state == next {
		return
	}
	e.logger.Debug("dream state transition", "from", e.state, "to", next)
	e.state = next
}

func (e *Engine) shouldStartDreamLocked(now time.Time) bool {
	if e.alert {
		return false
	}
	if e.cfg.blocksPhase(e.activePhase) {
		return false
	}
	if now.Sub(e.lastDreamEnd).Seconds() < e.cfg.MinTimeSinceLastDreamSeconds {
		return false
	}
	if emotionalIntensity(e.currentEmotions) > e.cfg.MaxEmotionalActivityForDream {
		return false
	}
	if e.mct.Len() == 0 {
		return false
	}
	return true
}

// CanStartDream reports whether a dream could start on the next tick
// given current conditions, without side effects.
func (e *Engine) CanStartDream() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != domain.DreamAwake {
		return false
	}
	return e.shouldStartDreamLocked(e.clock.Now())
}

// State returns the current dream state.
func (e *Engine) State() domain.DreamState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CycleProgress returns the fractional position within the circadian
// cycle, in [0,1).
func (e *Engine) CycleProgress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	elapsed := e.clock.Now().Sub(e.cycleStart).Seconds()
	return math.Mod(elapsed, e.cfg.CyclePeriodSeconds) / e.cfg.CyclePeriodSeconds
}

// PhaseProgress returns the fractional position within the current
// dream sub-phase, in [0,1], or 0 when awake.
func (e *Engine) PhaseProgress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.IsDreaming() {
		return 0
	}
	elapsed := e.clock.Now().Sub(e.phaseStart).Seconds()
	var duration float64
	switch e.state {
	case domain.DreamScan:
		duration = e.cfg.ScanDurationSeconds()
	case domain.DreamConsolidate:
		duration = e.cfg.ConsolidateDurationSeconds()
	case domain.DreamExplore:
		duration = e.cfg.ExploreDurationSeconds()
	case domain.DreamCleanup:
		duration = e.cfg.CleanupDurationSeconds()
	default:
		return 0
	}
	if duration <= 0 {
		return 0
	}
	return math.Min(elapsed/duration, 1.0)
}

// SecondsSinceLastDream returns how long it has been since the last
// completed (or interrupted) dream cycle ended.
func (e *Engine) SecondsSinceLastDream() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Now().Sub(e.lastDreamEnd).Seconds()
}

// Stats returns a copy of the running counters.
func (e *Engine) Stats() domain.DreamStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// ResetStats clears the running counters, for the reset_stats control
// command.
func (e *Engine) ResetStats() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = domain.DreamStats{}
}

// SetCausalLinks replaces the causal-link snapshot used by
// exploreCausalAssociationsLocked during EXPLORE.
func (e *Engine) SetCausalLinks(links []domain.CausalLink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.causalLinks = links
}

func emotionalIntensity(e domain.EmotionVector) float64 {
	var sum float64
	for _, v := range e {
		sum += math.Abs(v)
	}
	return sum / float64(domain.EmotionDim)
}

func emotionalDistance(a, b domain.EmotionVector) float64 {
	var sum float64
	for i := 0; i < domain.EmotionDim; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
