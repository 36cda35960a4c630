package kg

// Delta is the minimal pair of subgraphs that transforms one subgraph into
// another: apply Remove, then Add.
type Delta struct {
	Remove *Graph
	Add    *Graph
}

// Empty reports whether applying the delta would change nothing.
func (d Delta) Empty() bool {
	return d.Remove.Empty() && d.Add.Empty()
}

// ComputeDelta diffs an old subgraph against its reconciled replacement.
//
// Entities are diffed purely by id membership: an id present only in old is
// removed, an id present only in new is added, and an id present in both is
// left alone. Relationships have no caller-visible identity, so they are
// diffed by full-value signature; editing a relationship's properties is
// indistinguishable from deleting the old edge and adding a new one, which
// is the intended effect.
//
// The inputs are not mutated; the returned subgraphs hold clones.
func ComputeDelta(old, new *Graph) Delta {
	remove := NewGraph()
	add := NewGraph()

	for id, entity := range new.Entities {
		if _, ok := old.Entities[id]; !ok {
			add.Entities[id] = entity.Clone()
		}
	}
	for id, entity := range old.Entities {
		if _, ok := new.Entities[id]; !ok {
			remove.Entities[id] = entity.Clone()
		}
	}

	oldSigs := relationshipSignatures(old.Relationships)
	newSigs := relationshipSignatures(new.Relationships)

	for _, rel := range new.Relationships {
		if _, ok := oldSigs[rel.Signature()]; !ok {
			add.Relationships = append(add.Relationships, rel.Clone())
		}
	}
	for _, rel := range old.Relationships {
		if _, ok := newSigs[rel.Signature()]; !ok {
			remove.Relationships = append(remove.Relationships, rel.Clone())
		}
	}

	return Delta{Remove: remove, Add: add}
}

func relationshipSignatures(rels []Relationship) map[string]struct{} {
	sigs := make(map[string]struct{}, len(rels))
	for _, rel := range rels {
		sigs[rel.Signature()] = struct{}{}
	}
	return sigs
}
