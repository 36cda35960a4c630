package kg

import "sort"

// ResolveIdentities decides which candidate entities are the same
// real-world thing as an existing entity. A candidate matches an existing
// entity exactly when their signatures are byte-equal; see Entity.Signature.
// The check is deliberately strict: any property difference means the
// candidate is treated as a new entity, never as an update to the old one.
//
// The returned mapping is candidate id to existing id. A candidate whose
// signature matches more than one existing entity is an
// AmbiguousIdentityError.
func ResolveIdentities(old, candidate map[string]Entity) (map[string]string, error) {
	bySignature := make(map[string][]string, len(old))
	for id, entity := range old {
		sig := entity.Signature()
		bySignature[sig] = append(bySignature[sig], id)
	}
	for _, ids := range bySignature {
		sort.Strings(ids)
	}

	mapping := make(map[string]string)
	for _, newID := range sortedKeys(candidate) {
		oldIDs, ok := bySignature[candidate[newID].Signature()]
		if !ok {
			continue
		}
		if len(oldIDs) > 1 {
			return nil, &AmbiguousIdentityError{NewID: newID, OldIDs: oldIDs}
		}
		mapping[newID] = oldIDs[0]
	}
	return mapping, nil
}

// RestoreOriginalIDs rewrites a candidate subgraph so that every entity
// matched to an existing one reappears under its original id, with its
// original stored value, and every relationship endpoint follows. Valence
// entities are then force-preserved: their stored versions overwrite
// whatever the candidate produced for them, because unseen parts of the
// graph reference those ids.
//
// If a valence entity from old is absent from the candidate even after
// identity resolution, the candidate is rejected with a
// MissingValenceEntitiesError; silently dropping it would orphan
// relationships elsewhere in the store.
//
// The inputs are not mutated.
func RestoreOriginalIDs(old, candidate *Graph) (*Graph, error) {
	mapping, err := ResolveIdentities(old.Entities, candidate.Entities)
	if err != nil {
		return nil, err
	}

	restored := NewGraph()
	for newID, entity := range candidate.Entities {
		oldID, preserved := mapping[newID]
		if preserved {
			restored.Entities[oldID] = old.Entities[oldID].Clone()
		} else {
			restored.Entities[newID] = entity.Clone()
		}
	}

	for _, rel := range candidate.Relationships {
		r := rel.Clone()
		if oldID, ok := mapping[r.SourceID()]; ok {
			r[FieldSourceEntityID] = oldID
		}
		if oldID, ok := mapping[r.TargetID()]; ok {
			r[FieldTargetEntityID] = oldID
		}
		restored.Relationships = append(restored.Relationships, r)
	}

	var missing []string
	for _, id := range old.EntityIDs() {
		if !old.Entities[id].HasExternalNeighbor() {
			continue
		}
		if _, ok := restored.Entities[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingValenceEntitiesError{MissingIDs: missing, Candidate: candidate.Clone()}
	}

	// Force-preserve: the stored version of a valence entity wins over any
	// in-place edit the candidate made under the same id.
	for id, entity := range old.Entities {
		if entity.HasExternalNeighbor() {
			restored.Entities[id] = entity.Clone()
		}
	}

	return restored, nil
}

func sortedKeys(m map[string]Entity) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
