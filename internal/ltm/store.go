// Package ltm is the long-term memory sink named in §1's Non-goals
// ("The persistence store for long-term memory, viewed as a sink for
// consolidate/edge/forget commands") and realised here as a durable
// Postgres-backed Store, since the core process only ever emits
// commands onto the bus; something has to receive them.
//
// Grounded on internal/db/store.go's pgxpool.Pool wiring and
// Migrate(ctx)-on-startup idiom, repurposed from the souls/sessions/
// messages chat schema to the three tables a dream command actually
// populates.
package ltm

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"psyche/internal/domain"
)

var ErrMemoryNotFound = errors.New("memory not found")

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the three tables a dream command populates. Run once
// at startup, before the pipeline begins emitting commands.
func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS consolidated_memories (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			is_social BOOLEAN NOT NULL DEFAULT FALSE,
			interlocutor TEXT NOT NULL DEFAULT '',
			context_tag TEXT NOT NULL DEFAULT '',
			vector JSONB NOT NULL,
			feedback DOUBLE PRECISION NOT NULL DEFAULT 0,
			usage_count INTEGER NOT NULL DEFAULT 0,
			decisional_influence DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_trauma BOOLEAN NOT NULL DEFAULT FALSE,
			consolidation_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at_ms BIGINT NOT NULL,
			consolidated_at_ms BIGINT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS memory_edges (
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			relation TEXT NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			last_activation_ms BIGINT NOT NULL,
			PRIMARY KEY (source_id, target_id, relation)
		);`,
		`CREATE TABLE IF NOT EXISTS forgotten_memories (
			id TEXT PRIMARY KEY,
			forgotten_at_ms BIGINT NOT NULL
		);`,
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Consolidate upserts a memory the Dream Engine decided to transfer out
// of the short-term buffer (§4.G CONSOLIDATE).
func (s *Store) Consolidate(ctx context.Context, mem domain.Memory, nowMS int64) error {
	vectorJSON, err := mem.Vector.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal vector: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO consolidated_memories
			(id, type, is_social, interlocutor, context_tag, vector, feedback,
			 usage_count, decisional_influence, is_trauma, consolidation_score,
			 created_at_ms, consolidated_at_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			vector = EXCLUDED.vector,
			feedback = EXCLUDED.feedback,
			usage_count = EXCLUDED.usage_count,
			decisional_influence = EXCLUDED.decisional_influence,
			is_trauma = consolidated_memories.is_trauma OR EXCLUDED.is_trauma,
			consolidation_score = EXCLUDED.consolidation_score,
			consolidated_at_ms = EXCLUDED.consolidated_at_ms
	`, mem.ID, string(mem.Type), mem.IsSocial, mem.Interlocutor, string(mem.ContextTag),
		vectorJSON, mem.Feedback, mem.Usage, mem.DecisionalInfluence, mem.IsTrauma,
		mem.ConsolidationScore, mem.CreatedAtMS, nowMS)
	if err != nil {
		return fmt.Errorf("consolidate memory %s: %w", mem.ID, err)
	}
	return nil
}

// CreateEdge inserts a new association (§4.G EXPLORE/CONSOLIDATE),
// replacing any prior edge between the same pair with the same
// relation.
func (s *Store) CreateEdge(ctx context.Context, edge domain.MemoryEdge, nowMS int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO memory_edges (source_id, target_id, relation, weight, last_activation_ms)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (source_id, target_id, relation) DO UPDATE SET
			weight = EXCLUDED.weight,
			last_activation_ms = EXCLUDED.last_activation_ms
	`, edge.Source, edge.Target, string(edge.Relation), edge.Weight, nowMS)
	if err != nil {
		return fmt.Errorf("create edge %s->%s: %w", edge.Source, edge.Target, err)
	}
	return nil
}

// ReinforceEdge stores the reinforced weight the Dream Engine computed
// (§4.G CONSOLIDATE reinforcement), replacing any stored weight for the
// same edge or creating the edge if it does not yet exist.
func (s *Store) ReinforceEdge(ctx context.Context, edge domain.MemoryEdge, nowMS int64) error {
	return s.CreateEdge(ctx, edge, nowMS)
}

// Forget removes a non-trauma memory that decayed below the retention
// floor during CLEANUP, recording the deletion for audit purposes. The
// trauma invariant is enforced upstream by the Dream Engine; Forget does
// not re-check it.
func (s *Store) Forget(ctx context.Context, id string, nowMS int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin forget transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM consolidated_memories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete memory %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemoryNotFound
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO forgotten_memories (id, forgotten_at_ms) VALUES ($1,$2)
		ON CONFLICT (id) DO UPDATE SET forgotten_at_ms = EXCLUDED.forgotten_at_ms
	`, id, nowMS); err != nil {
		return fmt.Errorf("record forgotten memory %s: %w", id, err)
	}
	return tx.Commit(ctx)
}

// Apply dispatches a DreamCommand to the matching Store method, letting
// a single subscriber loop drive every command kind.
func (s *Store) Apply(ctx context.Context, cmd domain.DreamCommand, nowMS int64) error {
	switch cmd.Kind {
	case domain.DreamCommandConsolidate:
		return s.Consolidate(ctx, cmd.Memory, nowMS)
	case domain.DreamCommandCreateEdge:
		return s.CreateEdge(ctx, cmd.Edge, nowMS)
	case domain.DreamCommandReinforceEdge:
		return s.ReinforceEdge(ctx, cmd.Edge, nowMS)
	case domain.DreamCommandForget:
		return s.Forget(ctx, cmd.Memory.ID, nowMS)
	default:
		return fmt.Errorf("unknown dream command kind %q", cmd.Kind)
	}
}
