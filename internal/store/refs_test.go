package store_test

import (
	"errors"
	"testing"

	"github.com/mentor-mcp/mentor/internal/store"
)

func seedTask(t *testing.T, s *store.Store, id string) {
	t.Helper()
	if _, err := s.RegisterEntity(store.RegisterEntityParams{Type: "task", ID: id, Title: id}); err != nil {
		t.Fatalf("register task %s: %v", id, err)
	}
}

func link(t *testing.T, s *store.Store, srcType, srcID, tgtType, tgtID, rel string) {
	t.Helper()
	_, _, err := s.CreateReference(store.CreateReferenceParams{
		SourceType: srcType, SourceID: srcID,
		TargetType: tgtType, TargetID: tgtID,
		Relationship: rel,
	})
	if err != nil {
		t.Fatalf("link %s/%s -> %s/%s: %v", srcType, srcID, tgtType, tgtID, err)
	}
}

// ─── CreateReference ────────────────────────────────────────────────────────

func TestCreateReference_DuplicateIsNoOp(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "T-1")
	seedTask(t, s, "T-2")

	p := store.CreateReferenceParams{
		SourceType: "task", SourceID: "T-1",
		TargetType: "task", TargetID: "T-2",
		Relationship: "blocks",
	}
	ref1, created, err := s.CreateReference(p)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if !created {
		t.Error("first create should report created=true")
	}

	ref2, created, err := s.CreateReference(p)
	if err != nil {
		t.Fatalf("duplicate create should succeed: %v", err)
	}
	if created {
		t.Error("duplicate create should report created=false")
	}
	if ref1.CreatedAt != ref2.CreatedAt {
		t.Error("duplicate create should return the original edge")
	}

	refs, err := s.QueryReferences(store.RefFilter{SourceType: "task", SourceID: "T-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 {
		t.Errorf("expected exactly 1 edge, got %d", len(refs))
	}
}

func TestCreateReference_SameEndpointsDifferentRelationship(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "T-1")
	seedTask(t, s, "T-2")

	link(t, s, "task", "T-1", "task", "T-2", "blocks")
	link(t, s, "task", "T-1", "task", "T-2", "relates_to")

	refs, err := s.QueryReferences(store.RefFilter{SourceType: "task", SourceID: "T-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Errorf("expected 2 edges, got %d", len(refs))
	}
}

func TestCreateReference_UnknownType(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.CreateReference(store.CreateReferenceParams{
		SourceType: "widget", SourceID: "x",
		TargetType: "task", TargetID: "y",
		Relationship: "blocks",
	})
	if !errors.Is(err, store.ErrConstraint) {
		t.Errorf("err = %v, want ErrConstraint", err)
	}
}

// ─── QueryReferences ────────────────────────────────────────────────────────

func TestQueryReferences_Filters(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "T-1")
	seedTask(t, s, "T-2")
	if _, err := s.RegisterEntity(store.RegisterEntityParams{Type: "knowledge", ID: "K-1", Title: "k"}); err != nil {
		t.Fatal(err)
	}

	link(t, s, "task", "T-1", "task", "T-2", "blocks")
	link(t, s, "task", "T-1", "knowledge", "K-1", "produced")

	byTarget, err := s.QueryReferences(store.RefFilter{TargetType: "knowledge"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byTarget) != 1 || byTarget[0].TargetID != "K-1" {
		t.Errorf("target filter: got %+v", byTarget)
	}

	byRel, err := s.QueryReferences(store.RefFilter{Relationship: "blocks"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byRel) != 1 || byRel[0].Relationship != "blocks" {
		t.Errorf("relationship filter: got %+v", byRel)
	}

	all, err := s.QueryReferences(store.RefFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("unfiltered query: got %d edges, want 2", len(all))
	}
}

func TestReferencesTouching_BothDirections(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "T-1")
	seedTask(t, s, "T-2")
	seedTask(t, s, "T-3")

	link(t, s, "task", "T-1", "task", "T-2", "blocks")
	link(t, s, "task", "T-3", "task", "T-2", "relates_to")

	refs, err := s.ReferencesTouching("task", "T-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Errorf("expected edges in both directions, got %d", len(refs))
	}
}
