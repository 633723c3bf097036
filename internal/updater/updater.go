// Package updater implements the phase-governed differential update of the
// 24-dim emotion vector (§4.D), plus global variance and global energy.
//
// Generalised from internal/persona/engine.go's PAD update law: the same
// clamp/lerp helper idiom and the same "low-pass over a scalar mean,
// penalised by variance" shape as E_global, but lifted from a 3-dim
// (P,A,D) scalar state to a per-dimension update over all 24 labelled
// emotions, each governed by the active phase's (α,β,γ,δ,θ) coefficients.
package updater

import (
	"math"

	"psyche/internal/domain"
)

// Trend is the per-emotion trend_i vector of the wisdom-weighted term
// θ·wisdom·trend_i. The caller supplies it (the orchestrator passes the
// same memory-influence vector it uses for β), letting the Updater stay
// a pure function of its inputs.
type Trend = domain.EmotionVector

// Tick holds every input the update rule of §4.D reads for one tick.
// DeltaT is the elapsed time since the previous tick, in seconds; the
// formula is linear-combination-then-clamp, scaled by DeltaT so ticks of
// different durations contribute proportionally (recorded in DESIGN.md).
type Tick struct {
	Coeffs          domain.PhaseConfig
	FeedbackTotal   float64
	MemoryInfluence domain.EmotionVector
	ContextDrive    domain.EmotionVector
	DecayK          float64
	Wisdom          float64
	Trend           Trend
	DeltaT          float64
}

// Update applies one tick of the update rule to prev, returning the new
// clamped vector.
func Update(prev domain.EmotionVector, t Tick) domain.EmotionVector {
	dt := t.DeltaT
	if dt < 0 {
		dt = 0
	}
	if dt > 60 {
		dt = 60
	}

	var out domain.EmotionVector
	for i, ei := range prev {
		decayTerm := -t.DecayK * ei
		delta := dt * (t.Coeffs.Alpha*t.FeedbackTotal +
			t.Coeffs.Beta*t.MemoryInfluence[i] +
			t.Coeffs.Gamma*t.ContextDrive[i] +
			t.Coeffs.Delta*decayTerm +
			t.Coeffs.Theta*t.Wisdom*t.Trend[i])
		out[i] = domain.Clamp01(ei + delta)
	}
	return out
}

// squash maps an unbounded non-negative spread value into [0,1] via a
// saturating curve, matching §4.D's "mapped to [0,1] via a squashing
// function".
func squash(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return domain.Clamp01(1 - math.Exp(-x))
}

// GlobalVariance computes the variance of E concatenated with every
// memory's 24-vector, squashed into [0,1].
func GlobalVariance(e domain.EmotionVector, memories []domain.EmotionVector) float64 {
	n := 0
	sum := 0.0
	for _, v := range e {
		sum += v
		n++
	}
	for _, m := range memories {
		for _, v := range m {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)

	variance := 0.0
	for _, v := range e {
		d := v - mean
		variance += d * d
	}
	for _, m := range memories {
		for _, v := range m {
			d := v - mean
			variance += d * d
		}
	}
	variance /= float64(n)
	return squash(variance * float64(n))
}

// GlobalEnergy is a low-pass over mean emotional intensity, penalised by
// variance: Eg(t) = clamp01(0.9*Eg_prev + 0.1*mean(E) - 0.2*Vg).
func GlobalEnergy(e domain.EmotionVector, prevEg, variance float64) float64 {
	return domain.Clamp01(0.9*prevEg + 0.1*e.Mean() - 0.2*variance)
}
