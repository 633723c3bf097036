// Package contextualiser modulates a raw 24-dim emotion vector against
// physical/technical/social context, producing the contextualised state Cx:
// per-emotion modulation, a detected context label, a global emotion
// scalar, a coherence ratio, a significance score, and the alert/consolidate
// flags.
//
// MCEEContextualizer.h/.cpp, the original source for this logic, is a
// 0-byte stub in the retrieved original_source/mcee_v2.1 tree, so there
// is no file to port from; this package implements SPEC_FULL.md §4.B's
// formulas directly (context detection order, per-emotion influence
// terms, coherence and significance formulas).
package contextualiser

import (
	"fmt"
	"math"

	"psyche/internal/domain"
	"psyche/internal/gradient"
)

// Coefficients are the α..η per-emotion modulation weights read from
// config.
type Coefficients struct {
	Alpha, Beta, Gamma, Delta, Epsilon, Eta float64
}

// DefaultCoefficients mirrors the MCEEParameters seed values.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Alpha:   0.15,
		Beta:    0.20,
		Gamma:   0.10,
		Delta:   0.10,
		Epsilon: 0.20,
		Eta:     0.30,
	}
}

// ErrMissingDimension names a missing labelled input dimension.
// Contextualise never returns it, since an EmotionVector always carries
// all 24 dims; domain.EmotionVector's JSON decoder reports a missing key
// with its own error.
type ErrMissingDimension struct{ Field string }

func (e ErrMissingDimension) Error() string {
	return fmt.Sprintf("missing dimension: %s", e.Field)
}

// ErrOutOfRange is returned when an input scalar falls outside its
// declared interval.
type ErrOutOfRange struct {
	Field string
	Value float64
}

func (e ErrOutOfRange) Error() string {
	return fmt.Sprintf("out of range: %s=%v", e.Field, e.Value)
}

// Thresholds bundles the config-driven classification boundaries used by
// gradient.Classify.
type Thresholds struct {
	SurveillanceMax float64
	AlertMax        float64
	CriticalMax     float64
	UrgencyMax      float64
}

// DefaultThresholds matches §6's seuil_normal_max/seuil_surveillance_max/
// seuil_alerte_max/seuil_critique_max naming, seeded with a monotone
// partition of [0,1].
func DefaultThresholds() Thresholds {
	return Thresholds{
		SurveillanceMax: 0.35,
		AlertMax:        0.60,
		CriticalMax:     0.80,
		UrgencyMax:      0.95,
	}
}

// PrevTick carries the single piece of state the Contextualiser needs
// across ticks: whether the context label changed, and when.
type PrevTick struct {
	Label               domain.ContextLabel
	LastChangeAtUnixSec float64
	HasPrev             bool
}

// Result bundles Cx plus the updated PrevTick state for the next call.
type Result struct {
	State domain.ContextualisedState
	Prev  PrevTick
}

func validate(e domain.EmotionVector, c domain.Context) error {
	for i, v := range e {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return ErrOutOfRange{Field: domain.EmotionNames[i], Value: v}
		}
	}
	for name, v := range map[string]float64{
		"cpu_load": c.Technical.CPULoad, "ram_usage": c.Technical.RAMUsage,
		"stability": c.Technical.Stability,
		"gyro": c.Physical.Gyro, "volume": c.Physical.Volume,
		"luminosity": c.Physical.Luminosity, "temperature": c.Physical.Temperature,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return ErrOutOfRange{Field: name, Value: v}
		}
	}
	return nil
}

func detectContext(e domain.EmotionVector, c domain.Context) domain.ContextLabel {
	hottest := math.Max(c.Technical.CPUTemp, c.Technical.GPUTemp)
	switch {
	case c.Technical.CPULoad > 0.7 || c.Technical.RAMUsage > 0.8 || hottest > 75:
		return domain.ContextStressTechnique
	case c.Physical.Gyro > 0.8 || c.Physical.Volume > 0.8:
		return domain.ContextUrgencePhysique
	case positiveEmotionsSum(e) > 2.0 && c.Feedback.SocialInteraction:
		return domain.ContextJoieSociale
	case totalIntensity(e) < 3.0 && c.Physical.Gyro < 0.3 && c.Technical.CPULoad < 0.5:
		return domain.ContextRoutineStable
	default:
		return domain.ContextGeneral
	}
}

func totalIntensity(v domain.EmotionVector) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum
}

func feedbackInfluence(f domain.ExternalFeedback) float64 {
	positiveCount := 0.0
	if f.PositiveValidation {
		positiveCount++
	}
	if f.Encouragement {
		positiveCount++
	}
	alert := 0.0
	if f.ExternalAlert {
		alert = 1
	}
	return 0.3*positiveCount - 0.5*alert
}

func technicalInfluence(t domain.TechnicalState) float64 {
	cpuExcess := math.Max(0, t.CPULoad-0.7)
	ramExcess := math.Max(0, t.RAMUsage-0.8)
	hottest := math.Max(t.CPUTemp, t.GPUTemp)
	tempFactor := 0.0
	switch {
	case hottest >= 85:
		tempFactor = 1
	case hottest >= 75:
		tempFactor = 0.7
	case hottest >= 60:
		tempFactor = 0.3
	}
	return -(0.3*cpuExcess + 0.25*ramExcess + 0.35*tempFactor + 0.1*(1-t.Stability))
}

func physicalInfluence(p domain.PhysicalSensors) float64 {
	return 0.2*p.Temperature + 0.3*p.Volume + 0.2*p.Luminosity + 0.3*p.Gyro
}

func memoryInfluenceByContext(label domain.ContextLabel) float64 {
	if label == domain.ContextStressTechnique || label == domain.ContextUrgencePhysique {
		return 0.3
	}
	return 0.1
}

func contextWeight(label domain.ContextLabel, idx int) float64 {
	switch label {
	case domain.ContextJoieSociale:
		if isPositiveIndex(idx) {
			return 1.5
		}
		if isStressIndex(idx) {
			return 0.5
		}
	case domain.ContextStressTechnique, domain.ContextUrgencePhysique:
		if isStressIndex(idx) {
			return 1.5
		}
		if isPositiveIndex(idx) {
			return 0.5
		}
	}
	return 1.0
}

// Contextualise implements operation contextualise(E_raw, C) -> Cx of
// §4.B. prev carries cross-tick state (previous context label, the Unix
// time it last changed); the caller owns that state and passes back the
// returned Prev on the next call.
func Contextualise(e domain.EmotionVector, c domain.Context, w gradient.Weights, th Thresholds, coef Coefficients, prev PrevTick, nowUnixSec float64) (Result, error) {
	if err := validate(e, c); err != nil {
		return Result{}, err
	}

	gEnv := gradient.Environmental(w, c.Physical)
	gSys := gradient.SystemStress(w, c.Technical)
	gGlobal := gradient.GlobalDanger(w, gEnv, gSys, 0, 1-c.Technical.Stability)
	dangerLevel := gradient.Classify(gGlobal, th.SurveillanceMax, th.AlertMax, th.CriticalMax, th.UrgencyMax)

	label := detectContext(e, c)

	contextChanged := !prev.HasPrev || prev.Label != label
	lastChangeAt := prev.LastChangeAtUnixSec
	if contextChanged {
		lastChangeAt = nowUnixSec
	}
	transitionBoost := 0.0
	if contextChanged {
		transitionBoost = 0.2
	}
	dangerModulation := -0.3 * gGlobal
	memInfluence := memoryInfluenceByContext(label)
	fbInfluence := feedbackInfluence(c.Feedback)
	techInfluence := technicalInfluence(c.Technical)
	physInfluence := physicalInfluence(c.Physical)

	var cx domain.EmotionVector
	for i, ei := range e {
		delta := coef.Alpha*fbInfluence +
			coef.Beta*techInfluence +
			coef.Gamma*physInfluence +
			coef.Delta*memInfluence +
			coef.Epsilon*transitionBoost +
			coef.Eta*dangerModulation
		cx[i] = domain.Clamp01(ei + delta)
	}

	active := 0
	weightedActive := 0
	for i, v := range cx {
		if v > 0.1 {
			active++
			if contextWeight(label, i) > 1 {
				weightedActive++
			}
		}
	}
	coherence := 1.0
	if active > 0 {
		coherence = float64(weightedActive) / float64(active)
	}

	weightedSum, weightTotal := 0.0, 0.0
	for i, v := range cx {
		wgt := contextWeight(label, i)
		weightedSum += wgt * v
		weightTotal += wgt
	}
	globalEmotion := 0.0
	if weightTotal > 0 {
		globalEmotion = (weightedSum / weightTotal) * coherence
	}

	novelty := 0.2
	if contextChanged {
		novelty = 0.8
	}
	secondsSinceChange := nowUnixSec - lastChangeAt
	durationFactor := math.Min(1, secondsSinceChange/60)
	significance := 0.35*cx.Mean() + 0.20*novelty + 0.15*coherence + 0.20*gGlobal + 0.10*durationFactor

	adaptiveAlert := gradient.AdaptiveAlertThreshold(w, gGlobal)
	adaptiveMLT := gradient.AdaptiveMLTThreshold(w, gGlobal)
	alert := gGlobal > adaptiveAlert || cx.Max() > adaptiveAlert
	consolidate := significance >= adaptiveMLT

	priority := domain.PriorityNormal
	switch {
	case gGlobal > 0.8:
		priority = domain.PriorityCritical
	case gGlobal > 0.6:
		priority = domain.PriorityHigh
	}

	state := domain.ContextualisedState{
		Emotions:              cx,
		EmotionGlobale:        domain.Clamp01(globalEmotion),
		ContextLabel:          label,
		ContextConfidence:     coherence,
		DangerGradient:        domain.Clamp01(gGlobal),
		DangerLevel:           dangerLevel,
		AlertFlag:             alert,
		ConsolidateFlag:       consolidate,
		ConsolidationPriority: priority,
		SignificanceScore:     domain.Clamp01(significance),
		TimestampMS:           c.TimestampMS,
	}

	return Result{
		State: state,
		Prev: PrevTick{
			Label:               label,
			LastChangeAtUnixSec: lastChangeAt,
			HasPrev:             true,
		},
	}, nil
}
