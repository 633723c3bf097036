package dream

import (
	"math"

	"psyche/internal/domain"
)

// executeCleanupLocked applies exponential decay to every non-trauma
// scanned memory's consolidation score and emits a forget command for
// anything that decays below the deletion floor, then clears the MCT
// buffer and resets per-cycle scratch state. Caller holds e.mu.
func (e *Engine) executeCleanupLocked() {
	forgotten := 0
	for _, mem := range e.scoredMemories {
		if mem.IsTrauma {
			continue
		}

		decayed := mem.ConsolidationScore * math.Exp(-e.cfg.ForgetDecayRate)
		if decayed < e.cfg.MinWeightBeforeDeletion {
			e.emit(domain.DreamCommand{Kind: domain.DreamCommandForget, Memory: mem})
			e.mct.Delete(mem.ID)
			forgotten++
		}
	}
	e.stats.MemoriesForgotten += forgotten

	e.mct.Clear()
	e.scoredMemories = nil
}
