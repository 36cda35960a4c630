package kg

// Neighborhood extracts the bounded subgraph around the given seed entities:
// every entity reachable from a seed within hops relationship traversals
// (in either direction), plus every relationship whose endpoints both fall
// inside that set.
//
// Each extracted entity gets has_external_neighbor recomputed against the
// view boundary, so downstream curation knows which identities must survive
// a rewrite. Seeds not present in the graph are ignored.
func Neighborhood(g *Graph, seedIDs []string, hops int) *Graph {
	members := map[string]struct{}{}
	frontier := make([]string, 0, len(seedIDs))
	for _, id := range seedIDs {
		if _, ok := g.Entities[id]; !ok {
			continue
		}
		if _, ok := members[id]; ok {
			continue
		}
		members[id] = struct{}{}
		frontier = append(frontier, id)
	}

	adjacency := map[string][]string{}
	for _, rel := range g.Relationships {
		src, tgt := rel.SourceID(), rel.TargetID()
		if src == "" || tgt == "" {
			continue
		}
		adjacency[src] = append(adjacency[src], tgt)
		adjacency[tgt] = append(adjacency[tgt], src)
	}

	for range hops {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range adjacency[id] {
				if _, ok := g.Entities[neighbor]; !ok {
					continue
				}
				if _, ok := members[neighbor]; ok {
					continue
				}
				members[neighbor] = struct{}{}
				next = append(next, neighbor)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	view := NewGraph()
	for id := range members {
		view.Entities[id] = g.Entities[id].Clone()
	}
	for _, rel := range g.Relationships {
		_, srcIn := members[rel.SourceID()]
		_, tgtIn := members[rel.TargetID()]
		if srcIn && tgtIn {
			view.Relationships = append(view.Relationships, rel.Clone())
		}
	}

	// Valence flags are relative to this view's boundary, not whatever view
	// the entity was last serialized in.
	external := map[string]bool{}
	for _, rel := range g.Relationships {
		src, tgt := rel.SourceID(), rel.TargetID()
		_, srcIn := members[src]
		_, tgtIn := members[tgt]
		if srcIn && !tgtIn {
			external[src] = true
		}
		if tgtIn && !srcIn {
			external[tgt] = true
		}
	}
	for id, entity := range view.Entities {
		entity[FieldHasExternalNeighbor] = external[id]
	}

	return view
}
