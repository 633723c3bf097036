// Package orchestrator wires the gradient, contextualiser, phase,
// updater, memory, amygdala, and dream packages into the per-tick
// pipeline (4.H) and the supporting concurrency model (§5).
//
// Grounded on internal/orchestrator/service.go's mutex-guarded
// snapshot-then-compute idiom and internal/orchestrator/emotion_decay.go's
// ticker loop, both generalized from a chat-turn orchestrator to a
// continuous sensor-driven one.
package orchestrator

import (
	"psyche/internal/contextualiser"
	"psyche/internal/domain"
	"psyche/internal/dream"
	"psyche/internal/gradient"
	"psyche/internal/phase"
)

// Config bundles every tunable surface the pipeline depends on.
// cmd/affectd fills the gradient weights, context thresholds, context
// coefficients and update frequency from the flat key=value
// configuration file (§6); the other fields keep DefaultConfig's values.
type Config struct {
	GradientWeights      gradient.Weights
	ContextThresholds    contextualiser.Thresholds
	ContextCoefficients  contextualiser.Coefficients
	PhaseConfigs         map[domain.Phase]domain.PhaseConfig
	DreamConfig          dream.Config
	UpdateFrequencyHz    float64
	MemoryQueryTopK      int
	WisdomLearningRate   float64
	AutoMemoryThreshold  float64
	FearDwellSlowSeconds float64
	FearDwellForceSeconds float64
}

// DefaultConfig seeds every subsystem with its documented defaults and a
// uniform, phase-differentiated set of update coefficients (4.D) keyed
// by phase so the active Phase Detector output selects its own
// coefficients each tick, per SPEC_FULL.md's resolution of the "phase
// config vs MCEEParameters" open question: the phase config here is
// authoritative, gradient.Weights only seeds the gradient/threshold math.
func DefaultConfig() Config {
	return Config{
		GradientWeights:     gradient.DefaultWeights(),
		ContextThresholds:   contextualiser.DefaultThresholds(),
		ContextCoefficients: contextualiser.DefaultCoefficients(),
		PhaseConfigs:        defaultPhaseConfigs(),
		DreamConfig:         dream.DefaultConfig(),
		UpdateFrequencyHz:   10,
		MemoryQueryTopK:     5,
		WisdomLearningRate:  0.05,
		AutoMemoryThreshold: 0.5,
		FearDwellSlowSeconds:  60,
		FearDwellForceSeconds: 300,
	}
}

func defaultPhaseConfigs() map[domain.Phase]domain.PhaseConfig {
	base := domain.PhaseConfig{
		Alpha: 0.30, Beta: 0.20, Gamma: 0.25, Delta: 0.15, Theta: 0.10,
		LearningRate: 0.02, AmygdalaThreshold: 0.85,
		HysteresisMargin: 0.08, MinDwellSeconds: 10, StochasticMultiplier: 1.0,
	}
	cfgs := make(map[domain.Phase]domain.PhaseConfig, len(domain.AllPhases))
	for _, p := range domain.AllPhases {
		cfgs[p] = base
	}

	peur := base
	peur.Alpha, peur.Beta, peur.Gamma = 0.40, 0.30, 0.15
	peur.AmygdalaThreshold = 0.75
	peur.MinDwellSeconds = 15
	cfgs[domain.PhasePeur] = peur

	anxiete := base
	anxiete.Alpha, anxiete.Beta = 0.35, 0.25
	anxiete.AmygdalaThreshold = 0.80
	cfgs[domain.PhaseAnxiete] = anxiete

	serenite := base
	serenite.Delta = 0.25
	serenite.Theta = 0.15
	cfgs[domain.PhaseSerenite] = serenite

	return cfgs
}

// phaseScoreDefinitions returns the Phase Detector's scoring definitions.
// Kept as a function (rather than baked into DefaultConfig) since
// phase.Definition holds function values that cannot round-trip through
// the flat config file.
func phaseScoreDefinitions() []phase.Definition {
	return phase.DefaultDefinitions()
}
