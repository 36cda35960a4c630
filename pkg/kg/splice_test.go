package kg

import (
	"reflect"
	"testing"
)

func TestApplyRemovesEntitiesByID(t *testing.T) {
	g := testGraph([]Entity{
		testEntity("keep.1111", "Keep", nil),
		testEntity("gone.2222", "Gone", nil),
	})
	remove := testGraph([]Entity{testEntity("gone.2222", "Gone", nil)})

	Apply(g, remove, NewGraph())

	if !reflect.DeepEqual(g.EntityIDs(), []string{"keep.1111"}) {
		t.Fatalf("EntityIDs() = %v, want [keep.1111]", g.EntityIDs())
	}
}

func TestApplyRemovesRelationshipsByID(t *testing.T) {
	relA := testRelationship("a.1111", "b.2222", "knows")
	relA[FieldRelationshipID] = "rel.aaaaaaaa"
	relB := testRelationship("a.1111", "b.2222", "knows")
	relB[FieldRelationshipID] = "rel.bbbbbbbb"

	g := testGraph(
		[]Entity{testEntity("a.1111", "A", nil), testEntity("b.2222", "B", nil)},
		relA, relB,
	)
	// Same signature as both stored edges, but the id pins the removal to
	// exactly one of them.
	toRemove := relA.Clone()
	remove := NewGraph()
	remove.Relationships = append(remove.Relationships, toRemove)

	Apply(g, remove, NewGraph())

	if len(g.Relationships) != 1 {
		t.Fatalf("have %d relationships, want 1", len(g.Relationships))
	}
	if g.Relationships[0].ID() != "rel.bbbbbbbb" {
		t.Fatalf("surviving relationship = %q, want rel.bbbbbbbb", g.Relationships[0].ID())
	}
}

func TestApplyRemovesRelationshipsBySignatureFallback(t *testing.T) {
	// Stored edge predates synthetic relationship ids.
	g := testGraph(
		[]Entity{testEntity("a.1111", "A", nil), testEntity("b.2222", "B", nil)},
		testRelationship("a.1111", "b.2222", "knows"),
		testRelationship("a.1111", "b.2222", "employs"),
	)
	remove := NewGraph()
	remove.Relationships = append(remove.Relationships, testRelationship("a.1111", "b.2222", "knows"))

	Apply(g, remove, NewGraph())

	if len(g.Relationships) != 1 {
		t.Fatalf("have %d relationships, want 1", len(g.Relationships))
	}
	if g.Relationships[0]["description"] != "employs" {
		t.Fatalf("surviving relationship = %v", g.Relationships[0])
	}
}

func TestApplyAddReplacesWholeEntity(t *testing.T) {
	g := testGraph([]Entity{
		testEntity("a.1111", "A", map[string]any{"status": "old", "note": "kept?"}),
	})
	add := testGraph([]Entity{
		testEntity("a.1111", "A", map[string]any{"status": "new"}),
	})

	Apply(g, NewGraph(), add)

	got := g.Entities["a.1111"]
	if got["status"] != "new" {
		t.Fatalf("status = %v, want new", got["status"])
	}
	if _, ok := got["note"]; ok {
		t.Fatal("stale field survived; entity collision must replace the whole value")
	}
}

func TestApplyEmptyDeltaIsIdentity(t *testing.T) {
	g := testGraph(
		[]Entity{testEntity("a.1111", "A", map[string]any{"type": "marker"})},
		testRelationship("a.1111", "a.1111", "self"),
	)
	before := g.Clone()

	Apply(g, NewGraph(), NewGraph())

	if !reflect.DeepEqual(g, before) {
		t.Fatal("empty delta changed the graph")
	}
}
