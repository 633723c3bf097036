package dream

import "psyche/internal/domain"

// executeScanLocked computes Csocial for every memory in the MCT buffer
// and keeps them sorted descending for the phases that follow. Caller
// holds e.mu.
func (e *Engine) executeScanLocked() {
	snap := e.mct.Snapshot()
	scored := make([]domain.Memory, len(snap))
	for i, mem := range snap {
		mem.ConsolidationScore = e.consolidationScore(mem)
		scored[i] = mem
	}
	sortMemoriesByScoreDesc(scored)
	e.scoredMemories = scored
}

// consolidationScore is Csocial(t) (§4.G SCAN): a weighted blend of
// emotional distance, feedback, log-scaled usage, and decisional
// influence, boosted 20% for social memories and floored for trauma.
func (e *Engine) consolidationScore(mem domain.Memory) float64 {
	normalizedDist := emotionalDistance(e.currentEmotions, mem.Vector) / sqrt24
	usageNorm := domain.Clamp01(logUsage(mem.Usage))

	score := e.cfg.Rho*normalizedDist +
		e.cfg.Lambda*mem.Feedback +
		e.cfg.Eta*usageNorm +
		e.cfg.Theta*mem.DecisionalInfluence

	if mem.IsSocial {
		score *= 1.2
	}
	if mem.IsTrauma {
		floor := e.cfg.ConsolidationThreshold * 2
		if retentionFloor := e.cfg.TraumaRetentionMultiplier * e.cfg.ConsolidationThreshold / 5; retentionFloor > floor {
			floor = retentionFloor
		}
		if score < floor {
			score = floor
		}
	}
	return domain.Clamp01(score)
}

func sortMemoriesByScoreDesc(m []domain.Memory) {
	for i := 1; i < len(m); i++ {
		for j := i; j > 0 && m[j].ConsolidationScore > m[j-1].ConsolidationScore; j-- {
			m[j], m[j-1] = m[j-1], m[j]
		}
	}
}
