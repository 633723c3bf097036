package ltm

import (
	"context"
	"testing"

	"psyche/internal/domain"
)

// Apply's dispatch switch is exercised directly; the per-kind SQL paths
// need a live Postgres instance and are not covered here, matching the
// teacher's db package, which carried no store_test.go of its own.
func TestApplyRejectsUnknownKind(t *testing.T) {
	s := &Store{}
	err := s.Apply(context.Background(), domain.DreamCommand{Kind: "bogus"}, 0)
	if err == nil {
		t.Fatalf("expected an error for an unrecognised dream command kind")
	}
}
