package amygdala

import (
	"testing"

	"psyche/internal/domain"
)

func TestCheckTriggersOnEmotionMax(t *testing.T) {
	c := New(0.8)
	var e domain.EmotionVector
	e[14] = 0.9 // Fear

	if !c.Check(e, nil) {
		t.Fatalf("expected trigger when emotion max exceeds threshold")
	}
}

func TestCheckTriggersOnMemoryMax(t *testing.T) {
	c := New(0.8)
	var mv domain.EmotionVector
	mv[15] = 0.95 // Horror

	if !c.Check(domain.EmotionVector{}, []domain.Memory{{Vector: mv}}) {
		t.Fatalf("expected trigger from a memory exceeding threshold")
	}
}

func TestCheckFalseBelowThreshold(t *testing.T) {
	c := New(0.8)
	var e domain.EmotionVector
	e[14] = 0.5

	if c.Check(e, nil) {
		t.Fatalf("expected no trigger below threshold")
	}
}

func TestTriggerMapsActionsByLevel(t *testing.T) {
	c := New(0.8)
	cases := map[domain.DangerLevel]domain.EmergencyAction{
		domain.DangerUrgency:      domain.ActionFuite,
		domain.DangerCritical:     domain.ActionBlocage,
		domain.DangerAlert:        domain.ActionAlerte,
		domain.DangerSurveillance: domain.ActionSurveillance,
		domain.DangerNormal:       domain.ActionSurveillance,
	}
	for level, want := range cases {
		got := c.Trigger(level, nil)
		if got.Action != want {
			t.Fatalf("level %v: expected action %v, got %v", level, want, got.Action)
		}
	}
}
