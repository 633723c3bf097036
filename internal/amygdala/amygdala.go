// Package amygdala implements the Emergency Controller (4.F): a
// short-circuit check run once per tick, ahead of the normal emotion
// update, that can preempt the rest of the pipeline.
//
// Grounded on MCEEEngine.cpp's amyghaleon_.checkEmergency /
// triggerEmergencyResponse / executeEmergencyAction sequence.
package amygdala

import "psyche/internal/domain"

// Controller holds the adaptive alert threshold computed by the
// Gradient Calculator (4.A) for the current tick.
type Controller struct {
	Threshold float64
}

func New(threshold float64) Controller {
	return Controller{Threshold: threshold}
}

// Check reports whether the tick should short-circuit: either the
// current emotion vector's max exceeds the threshold, or any retrieved
// memory's own vector does.
func (c Controller) Check(e domain.EmotionVector, memories []domain.Memory) bool {
	if e.Max() > c.Threshold {
		return true
	}
	for _, mem := range memories {
		if mem.Vector.Max() > c.Threshold {
			return true
		}
	}
	return false
}

// Trigger builds the EmergencyResponse for a danger level, mapping it to
// the recommended action per §4.F.
func (c Controller) Trigger(level domain.DangerLevel, gradients map[string]float64) domain.EmergencyResponse {
	return domain.EmergencyResponse{
		Action:           actionFor(level),
		DangerLevel:      level,
		TriggerGradients: gradients,
	}
}

func actionFor(level domain.DangerLevel) domain.EmergencyAction {
	switch level {
	case domain.DangerUrgency:
		return domain.ActionFuite
	case domain.DangerCritical:
		return domain.ActionBlocage
	case domain.DangerAlert:
		return domain.ActionAlerte
	default:
		return domain.ActionSurveillance
	}
}
