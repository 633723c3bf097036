package memory

import (
	"testing"

	"psyche/internal/domain"
)

func TestRecordMergesOnDuplicateID(t *testing.T) {
	m := NewManager()
	var v domain.EmotionVector
	v[0] = 0.5

	m.Record(domain.Memory{ID: "a", Vector: v}, 1000)
	got := m.Record(domain.Memory{ID: "a", Vector: v}, 2000)

	if got.Usage != 2 {
		t.Fatalf("expected usage 2 after merge, got %d", got.Usage)
	}
	if got.LastSeenAtMS != 2000 {
		t.Fatalf("expected last-seen refreshed to 2000, got %d", got.LastSeenAtMS)
	}
	if m.Len() != 1 {
		t.Fatalf("expected single stored memory after merge, got %d", m.Len())
	}
}

func TestQueryRanksByInverseDistanceAndPhaseBonus(t *testing.T) {
	m := NewManager()
	var near, far domain.EmotionVector
	near[0] = 0.51
	far[0] = 0.9

	now := domain.EmotionVector{}
	now[0] = 0.5

	m.Record(domain.Memory{ID: "near", Vector: near, ContextTag: domain.ContextGeneral}, 0)
	m.Record(domain.Memory{ID: "far", Vector: far, ContextTag: domain.ContextUrgencePhysique}, 0)

	top := m.Query(domain.PhasePeur, now, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 results, got %d", len(top))
	}
	if top[0].ID != "far" {
		t.Fatalf("expected phase-match bonus to promote 'far', got order %v", []string{top[0].ID, top[1].ID})
	}
}

func TestComputeInfluencesEmptyYieldsZeroVector(t *testing.T) {
	out := ComputeInfluences(nil, domain.EmotionVector{}, 0.5)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("expected zero influence at %d, got %f", i, v)
		}
	}
}

func TestComputeInfluencesBoundedByDelta(t *testing.T) {
	var mv domain.EmotionVector
	mv[3] = 1.0
	mems := []domain.Memory{{ID: "x", Vector: mv, Usage: 5}}

	out := ComputeInfluences(mems, domain.EmotionVector{}, 0.2)
	if out[3] > 0.2+1e-9 {
		t.Fatalf("expected delta-scaled influence <= 0.2, got %f", out[3])
	}
}

func TestCreatePotentialTraumaRequiresPhaseAndAlert(t *testing.T) {
	m := NewManager()

	if _, ok := m.CreatePotentialTrauma("t1", domain.PhasePeur, false, domain.EmotionVector{}, true, 0); ok {
		t.Fatalf("expected no trauma without alert flag")
	}
	if _, ok := m.CreatePotentialTrauma("t1", domain.PhaseAnxiete, true, domain.EmotionVector{}, true, 0); ok {
		t.Fatalf("expected no trauma outside PEUR phase")
	}

	mem, ok := m.CreatePotentialTrauma("t1", domain.PhasePeur, true, domain.EmotionVector{}, true, 1234)
	if !ok || !mem.IsTrauma {
		t.Fatalf("expected trauma memory when phase=PEUR and alert flag set")
	}
}

func TestDeleteRemovesFromOrder(t *testing.T) {
	m := NewManager()
	m.Record(domain.Memory{ID: "a"}, 0)
	m.Record(domain.Memory{ID: "b"}, 0)
	m.Delete("a")

	if m.Len() != 1 {
		t.Fatalf("expected 1 memory after delete, got %d", m.Len())
	}
	if _, ok := m.Get("a"); ok {
		t.Fatalf("expected 'a' to be gone")
	}
}
