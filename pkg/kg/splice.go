package kg

// Apply splices a precomputed delta into a full graph: the remove-set is
// excised first, then the add-set is merged in.
//
// Entities are removed by id and added by mapping merge, where an id
// collision is a whole-value replace, never a field-level merge; this is the
// intended update contract, not an accident of the mapping type.
// Relationships are removed by relationship_id when the remove-set record
// carries one, falling back to full-value signature for id-less records
// written before synthetic ids existed, and appended without deduplication.
//
// The input graph is mutated and returned.
func Apply(g *Graph, remove, add *Graph) *Graph {
	for id := range remove.Entities {
		delete(g.Entities, id)
	}

	if len(remove.Relationships) > 0 {
		removeIDs := make(map[string]struct{})
		removeSigs := make(map[string]struct{})
		for _, rel := range remove.Relationships {
			if id := rel.ID(); id != "" {
				removeIDs[id] = struct{}{}
			} else {
				removeSigs[rel.Signature()] = struct{}{}
			}
		}

		kept := g.Relationships[:0]
		for _, rel := range g.Relationships {
			if id := rel.ID(); id != "" {
				if _, drop := removeIDs[id]; drop {
					continue
				}
			}
			if _, drop := removeSigs[rel.Signature()]; drop {
				continue
			}
			kept = append(kept, rel)
		}
		g.Relationships = kept
	}

	for id, entity := range add.Entities {
		g.Entities[id] = entity
	}
	g.Relationships = append(g.Relationships, add.Relationships...)

	return g
}
