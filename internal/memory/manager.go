// Package memory implements the Memory Manager (4.E): a short-term buffer
// of episodic Memory records held in process, keyed by stable string ids
// per Design Notes §9 ("arena keyed by stable ids, edges reference ids
// never pointers, enables snapshotting"). Nothing here is a pointer graph;
// Query and Snapshot both return copies so callers never observe the
// manager's internal state changing under them.
//
// Grounded on the teacher's lock-compute-unlock-then-use idiom.
package memory

import (
	"math"
	"sort"
	"sync"

	"psyche/internal/domain"
)

// Manager is the MCT: the short-term memory buffer held in-process (see
// GLOSSARY). One Manager instance backs one pipeline.
type Manager struct {
	mu    sync.Mutex
	byID  map[string]*domain.Memory
	order []string // insertion order, for deterministic Snapshot/iteration
}

func NewManager() *Manager {
	return &Manager{byID: make(map[string]*domain.Memory)}
}

// Record appends a new Memory, or merges into an existing one on id
// match (Open Question resolved in DESIGN.md: merge increments usage and
// refreshes the timestamp rather than rejecting or duplicating).
func (m *Manager) Record(mem domain.Memory, nowMS int64) domain.Memory {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byID[mem.ID]; ok {
		existing.Usage++
		existing.LastSeenAtMS = nowMS
		existing.Vector = mem.Vector
		existing.Feedback = mem.Feedback
		existing.DecisionalInfluence = mem.DecisionalInfluence
		if mem.IsTrauma {
			existing.IsTrauma = true
		}
		return *existing
	}

	mem.Usage = 1
	mem.CreatedAtMS = nowMS
	mem.LastSeenAtMS = nowMS
	cp := mem
	m.byID[mem.ID] = &cp
	m.order = append(m.order, mem.ID)
	return cp
}

// UpdateActivation raises usage and refreshes last-seen for an existing
// memory without altering its stored vector.
func (m *Manager) UpdateActivation(id string, nowMS int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.byID[id]; ok {
		mem.Usage++
		mem.LastSeenAtMS = nowMS
	}
}

// Get returns a copy of the memory for id, if present.
func (m *Manager) Get(id string) (domain.Memory, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.byID[id]
	if !ok {
		return domain.Memory{}, false
	}
	return *mem, true
}

// Len reports how many memories the buffer currently holds.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Snapshot returns a copy of every memory currently buffered, in
// insertion order. Dream SCAN and CLEANUP both operate on a snapshot
// rather than the live map, so they never race a concurrent Record.
func (m *Manager) Snapshot() []domain.Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Memory, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.byID[id])
	}
	return out
}

// Clear empties the buffer. Called by the Dream Engine at the end of
// CLEANUP (§4.G: "after CLEANUP clear MCT buffer").
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID = make(map[string]*domain.Memory)
	m.order = nil
}

// Delete removes a memory by id. Callers must have already checked the
// trauma invariant (is_trauma memories are never deleted).
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return
	}
	delete(m.byID, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// scored pairs a memory with its retrieval score, for Query's top-k sort.
type scored struct {
	mem   domain.Memory
	score float64
}

// Query returns the top-k memories for the current emotional state and
// phase, ranked by inverse Euclidean distance plus a phase-match bonus
// (§4.E). A memory tagged with the active phase's context receives a
// flat bonus so a recurring context is preferred over a merely close
// vector match: the bonus is as large as the whole inverse-distance
// range, so a matching memory always ranks above a non-matching one.
func (m *Manager) Query(phase domain.Phase, now domain.EmotionVector, k int) []domain.Memory {
	snap := m.Snapshot()
	if len(snap) == 0 || k <= 0 {
		return nil
	}

	const phaseMatchBonus = 1.0
	scoredMems := make([]scored, 0, len(snap))
	for _, mem := range snap {
		dist := euclideanDistance(now, mem.Vector)
		score := 1.0 / (1.0 + dist)
		if phaseContextMatches(phase, mem.ContextTag) {
			score += phaseMatchBonus
		}
		scoredMems = append(scoredMems, scored{mem: mem, score: score})
	}

	sort.SliceStable(scoredMems, func(i, j int) bool {
		return scoredMems[i].score > scoredMems[j].score
	})

	if k > len(scoredMems) {
		k = len(scoredMems)
	}
	out := make([]domain.Memory, k)
	for i := 0; i < k; i++ {
		out[i] = scoredMems[i].mem
	}
	return out
}

// ComputeInfluences reduces a set of retrieved memories to a single
// 24-dim influence vector: each memory contributes
// activation_strength x emotional_resonance x its own vector, normalised
// by the sum of weights and scaled by delta (§4.D/4.E).
func ComputeInfluences(memories []domain.Memory, now domain.EmotionVector, delta float64) domain.EmotionVector {
	var out domain.EmotionVector
	if len(memories) == 0 {
		return out
	}

	var totalWeight float64
	weights := make([]float64, len(memories))
	for i, mem := range memories {
		activation := activationStrength(mem)
		resonance := emotionalResonance(now, mem.Vector)
		w := activation * resonance
		weights[i] = w
		totalWeight += w
	}
	if totalWeight <= 0 {
		return out
	}

	for i, mem := range memories {
		w := weights[i] / totalWeight
		for d := 0; d < domain.EmotionDim; d++ {
			out[d] += w * mem.Vector[d]
		}
	}
	for d := 0; d < domain.EmotionDim; d++ {
		out[d] = domain.Clamp01(out[d] * delta)
	}
	return out
}

// CreatePotentialTrauma records a memory with IsTrauma set. Per the Open
// Question resolution in DESIGN.md, trauma creation requires BOTH
// phase == PEUR and the tick's alert flag, reconciling the dream code's
// phase-only gate with the orchestrator's alert-only gate in the
// original implementation.
func (m *Manager) CreatePotentialTrauma(id string, phase domain.Phase, alertFlag bool, now domain.EmotionVector, gradientCritical bool, nowMS int64) (domain.Memory, bool) {
	if phase != domain.PhasePeur || !alertFlag || !gradientCritical {
		return domain.Memory{}, false
	}
	mem := domain.Memory{
		ID:         id,
		Type:       domain.MemoryEpisodic,
		Vector:     now,
		IsTrauma:   true,
		ContextTag: domain.ContextUrgencePhysique,
	}
	return m.Record(mem, nowMS), true
}

func euclideanDistance(a, b domain.EmotionVector) float64 {
	var sum float64
	for i := 0; i < domain.EmotionDim; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func activationStrength(mem domain.Memory) float64 {
	return math.Log1p(float64(mem.Usage)) / 5.0
}

func emotionalResonance(now, stored domain.EmotionVector) float64 {
	dist := euclideanDistance(now, stored) / math.Sqrt(float64(domain.EmotionDim))
	return domain.Clamp01(1 - dist)
}

// phaseContextMatches maps a phase to the context label it most
// naturally co-occurs with, used only for Query's phase-match bonus.
func phaseContextMatches(phase domain.Phase, tag domain.ContextLabel) bool {
	switch phase {
	case domain.PhasePeur, domain.PhaseAnxiete:
		return tag == domain.ContextUrgencePhysique || tag == domain.ContextStressTechnique
	case domain.PhaseJoie, domain.PhaseSerenite:
		return tag == domain.ContextJoieSociale || tag == domain.ContextRoutineStable
	default:
		return false
	}
}
