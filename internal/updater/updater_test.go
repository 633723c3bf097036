package updater

import (
	"testing"

	"psyche/internal/domain"
)

func TestUpdateClampsAndAppliesDecay(t *testing.T) {
	var prev domain.EmotionVector
	prev[0] = 0.9

	tick := Tick{
		Coeffs: domain.PhaseConfig{Alpha: 0.1, Beta: 0.1, Gamma: 0.1, Delta: 1.0, Theta: 0.1},
		DecayK: 0.05,
		DeltaT: 1,
	}
	out := Update(prev, tick)
	if out[0] >= prev[0] {
		t.Fatalf("expected decay to lower dim 0, got %v from %v", out[0], prev[0])
	}
	for i, v := range out {
		if v < 0 || v > 1 {
			t.Fatalf("dim %d out of range: %v", i, v)
		}
	}
}

func TestUpdateClampsUpperBound(t *testing.T) {
	var prev domain.EmotionVector
	var memInf domain.EmotionVector
	for i := range memInf {
		memInf[i] = 10
	}
	tick := Tick{
		Coeffs: domain.PhaseConfig{Beta: 1.0},
		MemoryInfluence: memInf,
		DeltaT:          1,
	}
	out := Update(prev, tick)
	for i, v := range out {
		if v != 1 {
			t.Fatalf("dim %d expected clamp to 1, got %v", i, v)
		}
	}
}

func TestGlobalVarianceZeroForUniformInputs(t *testing.T) {
	var e domain.EmotionVector
	for i := range e {
		e[i] = 0.5
	}
	v := GlobalVariance(e, []domain.EmotionVector{e, e})
	if v != 0 {
		t.Fatalf("expected zero variance for identical vectors, got %v", v)
	}
}

func TestGlobalEnergyBounded(t *testing.T) {
	var e domain.EmotionVector
	for i := range e {
		e[i] = 1
	}
	eg := GlobalEnergy(e, 1, 0)
	if eg < 0 || eg > 1 {
		t.Fatalf("global energy out of range: %v", eg)
	}
}
