// Package phase maps an emotion vector to one of the discrete behavioural
// phases with hysteresis and a minimum dwell time, and emits transition
// events onto a channel (Design Notes §9: registered sinks realised as an
// enum of events on an internal channel, mirroring
// internal/orchestrator/emotion_decay.go's ticker-to-channel style).
//
// Grounded on original_source/mcee_v2.1/mcee/src/MCEEEngine.cpp's phase
// handling and original_source/reves/DreamState.hpp's state-enum idiom.
package phase

import (
	"sync"
	"time"

	"psyche/internal/domain"
)

// ScoreFunc computes a phase's affinity score over the 24-vector.
type ScoreFunc func(domain.EmotionVector) float64

// Definition pairs a phase with its scoring function and timing rules.
type Definition struct {
	Phase           domain.Phase
	Score           ScoreFunc
	HysteresisMargin float64
	MinDwell        time.Duration
}

func idx(name string) int {
	i, _ := domain.EmotionIndex(name)
	return i
}

func weighted(e domain.EmotionVector, weights map[string]float64) float64 {
	sum := 0.0
	for name, w := range weights {
		sum += w * e[idx(name)]
	}
	return sum
}

// DefaultDefinitions returns the eight named phases with weighted-sum
// scoring functions over designated positive/negative indices, matching
// §4.C's "typically a weighted sum of designated positive/negative
// indices" guidance. Hysteresis and dwell are fixed here; no
// configuration key changes them.
func DefaultDefinitions() []Definition {
	mk := func(p domain.Phase, weights map[string]float64, hysteresis float64, dwell time.Duration) Definition {
		return Definition{
			Phase:            p,
			Score:            func(e domain.EmotionVector) float64 { return weighted(e, weights) },
			HysteresisMargin: hysteresis,
			MinDwell:         dwell,
		}
	}
	return []Definition{
		mk(domain.PhaseSerenite, map[string]float64{"Calm": 1.0, "Satisfaction": 0.6, "Relief": 0.4}, 0.05, 10*time.Second),
		mk(domain.PhaseJoie, map[string]float64{"Joy": 1.0, "Amusement": 0.6, "Triumph": 0.5, "Excitement": 0.4}, 0.05, 10*time.Second),
		mk(domain.PhaseExploration, map[string]float64{"Interest": 1.0, "Fascination": 0.7, "Awe": 0.5, "AestheticAppreciation": 0.3}, 0.05, 10*time.Second),
		mk(domain.PhaseAnxiete, map[string]float64{"Anxiety": 1.0, "Confusion": 0.4, "EmpathicPain": 0.2}, 0.08, 15*time.Second),
		mk(domain.PhasePeur, map[string]float64{"Fear": 1.0, "Horror": 0.8}, 0.10, 15*time.Second),
		mk(domain.PhaseTristesse, map[string]float64{"Sadness": 1.0, "Nostalgia": 0.4, "EmpathicPain": 0.3}, 0.05, 10*time.Second),
		mk(domain.PhaseDegout, map[string]float64{"Disgust": 1.0, "Embarrassment": 0.4}, 0.05, 10*time.Second),
		mk(domain.PhaseConfusion, map[string]float64{"Confusion": 1.0, "Boredom": 0.3}, 0.05, 10*time.Second),
	}
}

// Detector holds the active phase, its score, entry time, and the
// transition-event sink.
type Detector struct {
	mu          sync.Mutex
	definitions []Definition
	byPhase     map[domain.Phase]Definition
	current     domain.Phase
	currentScore float64
	enteredAt   time.Time
	events      chan domain.TransitionEvent
}

// New builds a Detector seeded into initial (typically PhaseSerenite).
func New(defs []Definition, initial domain.Phase, now time.Time) *Detector {
	byPhase := make(map[domain.Phase]Definition, len(defs))
	for _, d := range defs {
		byPhase[d.Phase] = d
	}
	d := &Detector{
		definitions: defs,
		byPhase:     byPhase,
		current:     initial,
		enteredAt:   now,
		events:      make(chan domain.TransitionEvent, 32),
	}
	return d
}

// Events returns the channel transition events are published on. Readers
// must drain it; the channel is buffered so a slow reader doesn't block
// detection, matching the Dream Engine's "heavy callbacks must not be held
// under the engine's internal lock" requirement.
func (d *Detector) Events() <-chan domain.TransitionEvent {
	return d.events
}

// Current returns the active phase.
func (d *Detector) Current() domain.Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// DwellDuration returns how long the detector has held its current phase.
func (d *Detector) DwellDuration(now time.Time) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return now.Sub(d.enteredAt)
}

// Detect computes scores for all phases, picks the argmax, and transitions
// only if the candidate beats the incumbent by more than its hysteresis
// margin AND the incumbent has been held for at least its minimum dwell.
func (d *Detector) Detect(e domain.EmotionVector, now time.Time) domain.Phase {
	d.mu.Lock()
	defer d.mu.Unlock()

	currentDef, ok := d.byPhase[d.current]
	if !ok {
		currentDef = d.definitions[0]
	}
	currentScore := currentDef.Score(e)

	var bestPhase domain.Phase
	bestScore := -1.0
	for _, def := range d.definitions {
		s := def.Score(e)
		if s > bestScore {
			bestScore = s
			bestPhase = def.Phase
		}
	}

	d.currentScore = currentScore
	if bestPhase == d.current {
		return d.current
	}

	dwell := now.Sub(d.enteredAt)
	if (bestScore-currentScore) > currentDef.HysteresisMargin && dwell >= currentDef.MinDwell {
		d.transitionLocked(bestPhase, "score", now)
	}
	return d.current
}

// ForceTransition unconditionally switches the active phase, bypassing
// hysteresis and dwell, and emits the same transition event shape.
func (d *Detector) ForceTransition(target domain.Phase, reason string, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if target == d.current {
		return
	}
	d.transitionLocked(target, reason, now)
}

func (d *Detector) transitionLocked(target domain.Phase, reason string, now time.Time) {
	from := d.current
	duration := now.Sub(d.enteredAt)
	d.current = target
	d.enteredAt = now

	event := domain.TransitionEvent{
		From:     string(from),
		To:       string(target),
		Reason:   reason,
		Duration: duration.Seconds(),
	}
	select {
	case d.events <- event:
	default:
		// Drop rather than block detection; a slow consumer has fallen
		// behind and stale transition history is acceptable.
	}
}
