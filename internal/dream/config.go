package dream

import "psyche/internal/domain"

// Config is the circadian scheduler's tunable parameters (§4.G),
// grounded on reves/DreamConfig.hpp. Ratios are fractions of
// CyclePeriodSeconds / of the dream portion of the cycle, and the
// Duration* methods derive the absolute per-phase durations used by the
// state machine.
type Config struct {
	CyclePeriodSeconds float64
	AwakeRatio         float64
	DreamRatio         float64

	ScanRatio        float64
	ConsolidateRatio float64
	ExploreRatio     float64
	CleanupRatio     float64

	MinTimeSinceLastDreamSeconds float64
	MaxEmotionalActivityForDream float64
	BlockDreamPhases             []domain.Phase

	Rho, Lambda, Eta, Theta float64
	ConsolidationThreshold  float64

	SigmaBase        float64
	SigmaMultipliers map[domain.Phase]float64

	ForgetDecayRate          float64
	ReinforcementFactor      float64
	MinWeightBeforeDeletion  float64
	TraumaRetentionMultiplier float64
}

// DefaultConfig mirrors reves/DreamConfig.hpp's defaults: a 12h cycle,
// 80/20 awake/dream split, and the SCAN/CONSOLIDATE/EXPLORE/CLEANUP
// sub-ratios of 10/60/20/10%.
func DefaultConfig() Config {
	return Config{
		CyclePeriodSeconds: 12 * 60 * 60,
		AwakeRatio:         0.80,
		DreamRatio:         0.20,

		ScanRatio:        0.10,
		ConsolidateRatio: 0.60,
		ExploreRatio:     0.20,
		CleanupRatio:     0.10,

		MinTimeSinceLastDreamSeconds: 9 * 60 * 60,
		MaxEmotionalActivityForDream: 0.3,
		BlockDreamPhases:             []domain.Phase{domain.PhasePeur, domain.PhaseAnxiete},

		Rho:                    0.35,
		Lambda:                 0.25,
		Eta:                    0.20,
		Theta:                  0.20,
		ConsolidationThreshold: 0.5,

		SigmaBase: 0.15,
		SigmaMultipliers: map[domain.Phase]float64{
			domain.PhaseExploration: 1.5,
			domain.PhaseSerenite:    1.2,
			domain.PhaseJoie:        1.3,
			domain.PhaseAnxiete:     0.6,
			domain.PhasePeur:        0.4,
			domain.PhaseTristesse:   0.8,
			domain.PhaseDegout:      0.7,
			domain.PhaseConfusion:   0.9,
		},

		ForgetDecayRate:           0.05,
		ReinforcementFactor:       1.2,
		MinWeightBeforeDeletion:   0.1,
		TraumaRetentionMultiplier: 10.0,
	}
}

func (c Config) DreamDurationSeconds() float64 {
	return c.CyclePeriodSeconds * c.DreamRatio
}

func (c Config) ScanDurationSeconds() float64 {
	return c.DreamDurationSeconds() * c.ScanRatio
}

func (c Config) ConsolidateDurationSeconds() float64 {
	return c.DreamDurationSeconds() * c.ConsolidateRatio
}

func (c Config) ExploreDurationSeconds() float64 {
	return c.DreamDurationSeconds() * c.ExploreRatio
}

func (c Config) CleanupDurationSeconds() float64 {
	return c.DreamDurationSeconds() * c.CleanupRatio
}

func (c Config) blocksPhase(phase domain.Phase) bool {
	for _, p := range c.BlockDreamPhases {
		if p == phase {
			return true
		}
	}
	return false
}

func (c Config) sigmaMultiplier(phase domain.Phase) float64 {
	if m, ok := c.SigmaMultipliers[phase]; ok {
		return m
	}
	return 1.0
}
