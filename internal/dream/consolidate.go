package dream

import "psyche/internal/domain"

// executeConsolidateLocked emits a consolidate command for every memory
// scoring at or above the consolidation threshold (or tagged trauma),
// then emits a reinforce command for each compatible pair among the ten
// highest-scored memories. The reinforced weight is the pair's mean
// consolidation score times ReinforcementFactor; no previously stored
// edge weight is read. Caller holds e.mu.
func (e *Engine) executeConsolidateLocked() {
	var totalScore float64
	consolidated := 0

	for _, mem := range e.scoredMemories {
		if !mem.IsTrauma && mem.ConsolidationScore < e.cfg.ConsolidationThreshold {
			continue
		}
		e.emit(domain.DreamCommand{Kind: domain.DreamCommandConsolidate, Memory: mem})
		totalScore += mem.ConsolidationScore
		consolidated++
	}

	if consolidated > 0 {
		e.stats.MemoriesConsolidated += consolidated
		total := e.stats.MemoriesConsolidated
		e.stats.AverageConsolidationScore =
			(e.stats.AverageConsolidationScore*float64(total-consolidated) + totalScore) / float64(total)
	}

	limit := len(e.scoredMemories)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		for j := i + 1; j < limit; j++ {
			a, b := e.scoredMemories[i], e.scoredMemories[j]
			if !canCreateAssociation(a, b) {
				continue
			}
			weight := (a.ConsolidationScore + b.ConsolidationScore) / 2.0
			edge := domain.MemoryEdge{
				Source:   a.ID,
				Target:   b.ID,
				Weight:   weight * e.cfg.ReinforcementFactor,
				Relation: domain.EdgeEmotional,
			}
			e.emit(domain.DreamCommand{Kind: domain.DreamCommandReinforceEdge, Edge: edge})
			e.stats.EdgesCreated++
		}
	}
}

// canCreateAssociation is the compatibility predicate governing which
// pairs of scanned memories become candidate edges: same type, same
// context tag, same social interlocutor, or close emotionally.
func canCreateAssociation(a, b domain.Memory) bool {
	if a.Type == b.Type {
		return true
	}
	if a.ContextTag != "" && a.ContextTag == b.ContextTag {
		return true
	}
	if a.IsSocial && b.IsSocial && a.Interlocutor != "" && a.Interlocutor == b.Interlocutor {
		return true
	}
	return emotionalDistance(a.Vector, b.Vector) < 1.0
}
