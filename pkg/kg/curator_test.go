package kg

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gridironlabs/scoutgraph/pkg/store/memory"
)

type recordingLocker struct {
	keys []string
}

func (l *recordingLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	return fn(ctx)
}

func testCurator(t *testing.T, s *memory.Store, locker Locker) *Curator {
	t.Helper()
	curator, err := NewCurator(NewCuratorParams{
		Store:  s,
		Locker: locker,
		Now: func() time.Time {
			return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("NewCurator() error = %v", err)
	}
	return curator
}

func seedGraph(t *testing.T, s *memory.Store, graphID string, g *Graph) {
	t.Helper()
	data, err := EncodeGraph(g)
	if err != nil {
		t.Fatalf("EncodeGraph() error = %v", err)
	}
	if err := s.Put(context.Background(), graphID, data); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
}

func storedBytes(t *testing.T, s *memory.Store, graphID string) []byte {
	t.Helper()
	data, _, err := s.Get(context.Background(), graphID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return data
}

func TestNewCuratorRequiresStore(t *testing.T) {
	if _, err := NewCurator(NewCuratorParams{}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestCurateIntoEmptyGraph(t *testing.T) {
	s := memory.New()
	curator := testCurator(t, s, nil)
	ctx := context.Background()

	candidate, err := DecodeCandidate(`{
		"entities": [
			{"entity_id": "helm.0001", "entity_names": ["Helmsworth Dam"], "type": "infrastructure"},
			{"entity_id": "rive.0002", "entity_names": ["Riverton"], "type": "settlement"}
		],
		"relationships": [
			{"source_entity_id": "helm.0001", "target_entity_id": "rive.0002", "description": "supplies power to"}
		]
	}`)
	if err != nil {
		t.Fatalf("DecodeCandidate() error = %v", err)
	}

	if err := curator.ReconcileAndSplice(ctx, NewGraph(), candidate, "agent-7", "report-1"); err != nil {
		t.Fatalf("ReconcileAndSplice() error = %v", err)
	}

	graph, err := curator.Fetch(ctx, "report-1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(graph.Entities) != 2 || len(graph.Relationships) != 1 {
		t.Fatalf("stored graph has %d entities, %d relationships", len(graph.Entities), len(graph.Relationships))
	}
	for _, provisional := range []string{"helm.0001", "rive.0002"} {
		if _, ok := graph.Entities[provisional]; ok {
			t.Fatalf("provisional id %q survived curation", provisional)
		}
	}
	for id, entity := range graph.Entities {
		if entity[FieldUpdatedBy] != "agent-7" {
			t.Fatalf("entity %q updated_by = %v", id, entity[FieldUpdatedBy])
		}
		if entity[FieldUpdatedAt] != "2026-03-14T09:26:53Z" {
			t.Fatalf("entity %q updated_at = %v", id, entity[FieldUpdatedAt])
		}
	}

	rel := graph.Relationships[0]
	if _, ok := graph.Entities[rel.SourceID()]; !ok {
		t.Fatalf("relationship source %q not in graph", rel.SourceID())
	}
	if _, ok := graph.Entities[rel.TargetID()]; !ok {
		t.Fatalf("relationship target %q not in graph", rel.TargetID())
	}
	if rel.ID() == "" {
		t.Fatal("stored relationship has no relationship_id")
	}
	if len(graph.DanglingEntityIDs()) != 0 {
		t.Fatalf("dangling ids: %v", graph.DanglingEntityIDs())
	}
}

// Re-running the same candidate against the updated view must not write:
// identity resolution maps every re-emitted entity back to its stored id
// and the delta collapses to nothing.
func TestCurateRerunIsNoOp(t *testing.T) {
	s := memory.New()
	curator := testCurator(t, s, nil)
	ctx := context.Background()

	candidateText := `{
		"entities": [
			{"entity_id": "helm.0001", "entity_names": ["Helmsworth Dam"], "type": "infrastructure"}
		],
		"relationships": []
	}`
	candidate, err := DecodeCandidate(candidateText)
	if err != nil {
		t.Fatalf("DecodeCandidate() error = %v", err)
	}
	if err := curator.ReconcileAndSplice(ctx, NewGraph(), candidate, "agent-7", "report-1"); err != nil {
		t.Fatalf("first ReconcileAndSplice() error = %v", err)
	}
	before := storedBytes(t, s, "report-1")

	old, err := curator.Fetch(ctx, "report-1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	rerun, err := DecodeCandidate(candidateText)
	if err != nil {
		t.Fatalf("DecodeCandidate() error = %v", err)
	}
	if err := curator.ReconcileAndSplice(ctx, old, rerun, "agent-8", "report-1"); err != nil {
		t.Fatalf("second ReconcileAndSplice() error = %v", err)
	}

	after := storedBytes(t, s, "report-1")
	if !bytes.Equal(before, after) {
		t.Fatalf("stored graph changed on a no-op rerun:\n%s\n%s", before, after)
	}
}

func TestCurateMissingValenceLeavesStoreUntouched(t *testing.T) {
	s := memory.New()
	curator := testCurator(t, s, nil)
	ctx := context.Background()

	stored := testGraph(
		[]Entity{
			testEntity("helm.a1b2", "Helmsworth Dam", map[string]any{"type": "infrastructure"}),
			testEntity("rive.c3d4", "Riverton", map[string]any{"type": "settlement"}),
		},
		testRelationship("helm.a1b2", "rive.c3d4", "supplies power to"),
	)
	seedGraph(t, s, "report-1", stored)
	before := storedBytes(t, s, "report-1")

	// The view handed to the agent marks the dam as referenced from outside.
	old := stored.Clone()
	old.Entities["helm.a1b2"][FieldHasExternalNeighbor] = true

	// The rewrite dropped the dam entirely.
	candidate := testGraph([]Entity{
		testEntity("rive.c3d4", "Riverton", map[string]any{"type": "settlement"}),
	})

	err := curator.ReconcileAndSplice(ctx, old, candidate, "agent-7", "report-1")
	var missing *MissingValenceEntitiesError
	if !errors.As(err, &missing) {
		t.Fatalf("ReconcileAndSplice() error = %v, want MissingValenceEntitiesError", err)
	}

	after := storedBytes(t, s, "report-1")
	if !bytes.Equal(before, after) {
		t.Fatal("stored graph changed despite the rejected candidate")
	}
}

func TestCuratePartialRewrite(t *testing.T) {
	s := memory.New()
	curator := testCurator(t, s, nil)
	ctx := context.Background()

	stored := testGraph([]Entity{
		testEntity("helm.a1b2", "Helmsworth Dam", map[string]any{"type": "infrastructure"}),
		testEntity("gone.e5f6", "Outdated Claim", map[string]any{"type": "claim"}),
	})
	seedGraph(t, s, "report-1", stored)

	old := stored.Clone()
	old.Entities["helm.a1b2"][FieldHasExternalNeighbor] = true

	// The rewrite re-emits the dam verbatim under a fresh provisional id,
	// drops the outdated claim and introduces a new settlement.
	candidate := testGraph(
		[]Entity{
			testEntity("prov.0001", "Helmsworth Dam", map[string]any{
				"type":                   "infrastructure",
				FieldHasExternalNeighbor: true,
			}),
			testEntity("prov.0002", "Riverton", map[string]any{"type": "settlement"}),
		},
		testRelationship("prov.0001", "prov.0002", "supplies power to"),
	)

	if err := curator.ReconcileAndSplice(ctx, old, candidate, "agent-7", "report-1"); err != nil {
		t.Fatalf("ReconcileAndSplice() error = %v", err)
	}

	graph, err := curator.Fetch(ctx, "report-1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	dam, ok := graph.Entities["helm.a1b2"]
	if !ok {
		t.Fatalf("valence entity lost its id, graph has %v", graph.EntityIDs())
	}
	if _, stamped := dam[FieldUpdatedBy]; stamped {
		t.Fatal("preserved entity was re-stamped")
	}
	if _, ok := graph.Entities["gone.e5f6"]; ok {
		t.Fatal("dropped entity still present")
	}

	var settlement Entity
	for id, entity := range graph.Entities {
		if id != "helm.a1b2" {
			settlement = entity
		}
	}
	if settlement == nil || settlement.DisplayName() != "Riverton" {
		t.Fatalf("new entity missing, graph has %v", graph.EntityIDs())
	}
	if settlement[FieldUpdatedBy] != "agent-7" {
		t.Fatalf("new entity updated_by = %v", settlement[FieldUpdatedBy])
	}

	if len(graph.Relationships) != 1 {
		t.Fatalf("have %d relationships, want 1", len(graph.Relationships))
	}
	rel := graph.Relationships[0]
	if rel.SourceID() != "helm.a1b2" || rel.TargetID() != settlement.ID() {
		t.Fatalf("relationship endpoints = %q -> %q", rel.SourceID(), rel.TargetID())
	}
}

func TestCurateTakesPerGraphLock(t *testing.T) {
	s := memory.New()
	locker := &recordingLocker{}
	curator := testCurator(t, s, locker)
	ctx := context.Background()

	candidate := testGraph([]Entity{
		testEntity("helm.0001", "Helmsworth Dam", map[string]any{"type": "infrastructure"}),
	})
	if err := curator.ReconcileAndSplice(ctx, NewGraph(), candidate, "agent-7", "report-1"); err != nil {
		t.Fatalf("ReconcileAndSplice() error = %v", err)
	}

	if len(locker.keys) != 1 || locker.keys[0] != "graph:report-1" {
		t.Fatalf("lock keys = %v, want [graph:report-1]", locker.keys)
	}
}

func TestCurateEmptyDeltaSkipsLock(t *testing.T) {
	s := memory.New()
	locker := &recordingLocker{}
	curator := testCurator(t, s, locker)
	ctx := context.Background()

	old := testGraph([]Entity{
		testEntity("helm.a1b2", "Helmsworth Dam", map[string]any{"type": "infrastructure"}),
	})
	candidate := old.Clone()

	if err := curator.ReconcileAndSplice(ctx, old, candidate, "agent-7", "report-1"); err != nil {
		t.Fatalf("ReconcileAndSplice() error = %v", err)
	}
	if len(locker.keys) != 0 {
		t.Fatalf("lock taken for an empty delta: %v", locker.keys)
	}
	if data := storedBytes(t, s, "report-1"); data != nil {
		t.Fatalf("store written for an empty delta: %s", data)
	}
}
