// Package gradient computes the environmental and system-stress gradients,
// the aggregate danger gradient, its five-level classification, and the
// adaptive thresholds that depend on it. Every operation here is pure: no
// shared state, no clock.
//
// MCEEGradients.h/.cpp, the original source for this arithmetic, is a
// 0-byte stub in the retrieved original_source/mcee_v2.1 tree, so there
// is no file to port from; this package implements SPEC_FULL.md §4.A's
// formulas directly, as free functions over explicit value types rather
// than member functions on a shared engine instance.
package gradient

import (
	"math"

	"psyche/internal/domain"
)

// Weights bundles the coefficients §4.A reads from the config file.
type Weights struct {
	Omega1, Omega2, Omega3, Omega4 float64 // environmental
	Sigma1, Sigma2, Sigma3, Sigma4 float64 // system stress
	PiEnv, PiSys, PiTrauma, PiInstab float64
	BaseMLTThreshold   float64
	BaseAlertThreshold float64
}

// DefaultWeights mirrors the MCEEParameters defaults the original engine
// seeds its phase configuration from (SPEC_FULL.md §9 open question #1:
// phase config is authoritative at runtime, these are only the seed).
func DefaultWeights() Weights {
	return Weights{
		Omega1: 0.35, Omega2: 0.25, Omega3: 0.20, Omega4: 0.20,
		Sigma1: 0.30, Sigma2: 0.25, Sigma3: 0.30, Sigma4: 0.15,
		PiEnv: 0.30, PiSys: 0.30, PiTrauma: 0.25, PiInstab: 0.15,
		BaseMLTThreshold:   0.65,
		BaseAlertThreshold: 0.90,
	}
}

// Environmental computes g_env from the physical sensor vector.
func Environmental(w Weights, p domain.PhysicalSensors) float64 {
	g := w.Omega1*p.Gyro +
		w.Omega2*math.Max(0, p.Volume-0.8) +
		w.Omega3*math.Abs(p.Temperature-0.5) +
		w.Omega4*p.Luminosity
	return math.Min(domain.Clamp01(g), 1)
}

// tempCritical is the step function over max(cpu_temp, gpu_temp).
func tempCritical(tempC float64) float64 {
	switch {
	case tempC < 60:
		return 0
	case tempC < 75:
		return 0.3
	case tempC < 85:
		return 0.7
	default:
		return 1
	}
}

// SystemStress computes g_sys from the technical state vector.
func SystemStress(w Weights, t domain.TechnicalState) float64 {
	hottest := math.Max(t.CPUTemp, t.GPUTemp)
	g := w.Sigma1*math.Max(0, t.CPULoad-0.7) +
		w.Sigma2*math.Max(0, t.RAMUsage-0.8) +
		w.Sigma3*tempCritical(hottest) +
		w.Sigma4*(1-t.Stability)
	return math.Min(domain.Clamp01(g), 1)
}

// GlobalDanger blends the environmental, system, trauma and instability
// gradients into a single aggregate.
func GlobalDanger(w Weights, gEnv, gSys, trauma, instab float64) float64 {
	g := w.PiEnv*gEnv + w.PiSys*gSys + w.PiTrauma*trauma + w.PiInstab*instab
	return math.Min(domain.Clamp01(g), 1)
}

// Classify partitions [0,1] into the five danger levels using four
// monotone thresholds. At an exact boundary the lower level is returned.
func Classify(gGlobal, surveillanceMax, alertMax, criticalMax, urgencyMax float64) domain.DangerLevel {
	switch {
	case gGlobal <= surveillanceMax:
		return domain.DangerNormal
	case gGlobal <= alertMax:
		return domain.DangerSurveillance
	case gGlobal <= criticalMax:
		return domain.DangerAlert
	case gGlobal <= urgencyMax:
		return domain.DangerCritical
	default:
		return domain.DangerUrgency
	}
}

// AdaptiveMLTThreshold lowers the memory-consolidation threshold as danger
// rises, floored at 0.45.
func AdaptiveMLTThreshold(w Weights, gGlobal float64) float64 {
	return math.Max(0.45, w.BaseMLTThreshold-0.20*gGlobal)
}

// AdaptiveAlertThreshold lowers the alert threshold as danger rises,
// floored at 0.75.
func AdaptiveAlertThreshold(w Weights, gGlobal float64) float64 {
	return math.Max(0.75, w.BaseAlertThreshold-0.15*gGlobal)
}

// CriticalPattern flags a sustained, steeply-rising danger trend.
func CriticalPattern(gGlobal, gDerivative, persistenceSeconds float64) bool {
	return gGlobal > 0.8 && gDerivative > 0.3 && persistenceSeconds > 30
}
