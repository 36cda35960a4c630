package kg

import (
	"time"
)

// StampMetadata prepares the add-set of a delta for insertion into the
// persisted graph.
//
// Every add-set entity receives a freshly generated id in place of its
// caller-supplied provisional one (a generation process can emit colliding
// or malformed ids, so they are never trusted), plus updated_at and
// updated_by. Add-set relationship endpoints are rewritten in lockstep with
// the id regeneration, and each add-set relationship is assigned a synthetic
// relationship_id so later removals can address it precisely.
//
// Entities matched as preserved never reach the add-set, so their metadata
// is untouched by construction. taken reports ids already in use anywhere in
// the persisted graph; generated ids are additionally unique within the
// add-set itself.
func StampMetadata(add *Graph, authorID string, now time.Time, taken func(id string) bool) (*Graph, error) {
	stampedAt := now.UTC().Truncate(time.Second).Format(time.RFC3339)

	generated := make(map[string]struct{}, len(add.Entities))
	inUse := func(id string) bool {
		if _, ok := generated[id]; ok {
			return true
		}
		return taken != nil && taken(id)
	}

	idMapping := make(map[string]string, len(add.Entities))
	stamped := NewGraph()

	for _, provisionalID := range add.EntityIDs() {
		entity := add.Entities[provisionalID].Clone()
		id, err := NewEntityID(entity.DisplayName(), inUse)
		if err != nil {
			return nil, err
		}
		generated[id] = struct{}{}
		idMapping[provisionalID] = id

		entity[FieldEntityID] = id
		entity[FieldUpdatedAt] = stampedAt
		entity[FieldUpdatedBy] = authorID
		stamped.Entities[id] = entity
	}

	for _, rel := range add.Relationships {
		r := rel.Clone()
		if id, ok := idMapping[r.SourceID()]; ok {
			r[FieldSourceEntityID] = id
		}
		if id, ok := idMapping[r.TargetID()]; ok {
			r[FieldTargetEntityID] = id
		}
		if r.ID() == "" {
			id, err := NewRelationshipID()
			if err != nil {
				return nil, err
			}
			r[FieldRelationshipID] = id
		}
		stamped.Relationships = append(stamped.Relationships, r)
	}

	return stamped, nil
}
