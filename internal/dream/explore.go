package dream

import (
	"math"

	"psyche/internal/domain"
)

// executeExploreLocked creates new, previously-unconnected associations:
// first causal-link associations grounded in speech-derived word/emotion
// groupings, then stochastic associations between memories that are not
// direct neighbours in the scanned ranking. Caller holds e.mu.
func (e *Engine) executeExploreLocked() {
	e.exploreCausalAssociationsLocked()

	sigma := e.cfg.SigmaBase * e.cfg.sigmaMultiplier(e.activePhase)

	for i := 0; i < len(e.scoredMemories); i++ {
		for j := i + 2; j < len(e.scoredMemories); j++ {
			r := math.Abs(e.rng.NormFloat64() * sigma)
			if r <= sigma/2 {
				continue
			}

			similarity := 1.0 - emotionalDistance(
				e.scoredMemories[i].Vector,
				e.scoredMemories[j].Vector,
			)/sqrt24

			if similarity+r <= 0.6 {
				continue
			}

			edge := domain.MemoryEdge{
				Source:   e.scoredMemories[i].ID,
				Target:   e.scoredMemories[j].ID,
				Weight:   similarity * r,
				Relation: domain.EdgeStochastic,
			}
			e.emit(domain.DreamCommand{Kind: domain.DreamCommandCreateEdge, Edge: edge})
			e.stats.EdgesCreated++
		}
	}
}

// exploreCausalAssociationsLocked groups scanned memories by the
// dominant-emotion word they share via causalLinks, then links every
// pair within each group (capped at 5 memories per word to bound the
// pair count).
func (e *Engine) exploreCausalAssociationsLocked() {
	if len(e.causalLinks) == 0 {
		return
	}

	wordToMemories := make(map[string][]int)
	for _, link := range e.causalLinks {
		for i, mem := range e.scoredMemories {
			idx, maxVal := dominantEmotion(mem.Vector)
			if maxVal > 0.1 && idx == link.DominantEmotion {
				wordToMemories[link.WordLemma] = append(wordToMemories[link.WordLemma], i)
			}
		}
	}

	for word, indices := range wordToMemories {
		if len(indices) < 2 {
			continue
		}

		causalStrength := 0.5
		for _, link := range e.causalLinks {
			if link.WordLemma == word {
				causalStrength = link.CausalStrength
				break
			}
		}

		limit := len(indices)
		if limit > 5 {
			limit = 5
		}
		for i := 0; i < limit; i++ {
			for j := i + 1; j < limit; j++ {
				m1, m2 := e.scoredMemories[indices[i]], e.scoredMemories[indices[j]]
				edge := domain.MemoryEdge{
					Source:   m1.ID,
					Target:   m2.ID,
					Weight:   causalStrength * 0.8,
					Relation: domain.EdgeCausalAssociation,
				}
				e.emit(domain.DreamCommand{Kind: domain.DreamCommandCreateEdge, Edge: edge})
				e.stats.EdgesCreated++
			}
		}
	}
}
