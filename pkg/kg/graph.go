package kg

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Well-known entity and relationship fields. Everything else on an entity
// or relationship is free-form and passes through the core untouched.
const (
	FieldEntityID            = "entity_id"
	FieldEntityNames         = "entity_names"
	FieldHasExternalNeighbor = "has_external_neighbor"
	FieldUpdatedAt           = "updated_at"
	FieldUpdatedBy           = "updated_by"

	FieldRelationshipID = "relationship_id"
	FieldSourceEntityID = "source_entity_id"
	FieldTargetEntityID = "target_entity_id"
)

// Entity is a graph node. It is kept as a free-form JSON object because
// curation agents attach arbitrary properties; the core only interprets the
// well-known fields above.
type Entity map[string]any

// Relationship is a directed, property-bearing edge between two entities.
type Relationship map[string]any

// Graph is a set of entities keyed by entity id plus a sequence of
// relationships. The same shape serves both the full persisted graph and
// bounded subgraph views handed to curation agents.
type Graph struct {
	Entities      map[string]Entity `json:"entities"`
	Relationships []Relationship    `json:"relationships"`
}

// NewGraph returns an empty graph. A graph id that has never been written
// reads back as this.
func NewGraph() *Graph {
	return &Graph{
		Entities:      map[string]Entity{},
		Relationships: []Relationship{},
	}
}

func (e Entity) ID() string {
	id, _ := e[FieldEntityID].(string)
	return id
}

// DisplayName returns the canonical display name, entity_names[0].
func (e Entity) DisplayName() string {
	switch names := e[FieldEntityNames].(type) {
	case []any:
		if len(names) > 0 {
			name, _ := names[0].(string)
			return name
		}
	case []string:
		if len(names) > 0 {
			return names[0]
		}
	}
	return ""
}

// HasExternalNeighbor reports whether the entity is a valence entity of the
// subgraph view it was taken from, i.e. something outside the view still
// references it.
func (e Entity) HasExternalNeighbor() bool {
	v, _ := e[FieldHasExternalNeighbor].(bool)
	return v
}

func (e Entity) Clone() Entity {
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Signature returns a canonical serialization of the entity with its id and
// update metadata stripped. Two entities are considered the same real-world
// thing exactly when their signatures are byte-equal; there is no fuzzy
// matching.
func (e Entity) Signature() string {
	sig := make(map[string]any, len(e))
	for k, v := range e {
		switch k {
		case FieldEntityID, FieldUpdatedAt, FieldUpdatedBy:
			continue
		}
		sig[k] = v
	}
	return canonicalJSON(sig)
}

func (r Relationship) ID() string {
	id, _ := r[FieldRelationshipID].(string)
	return id
}

func (r Relationship) SourceID() string {
	id, _ := r[FieldSourceEntityID].(string)
	return id
}

func (r Relationship) TargetID() string {
	id, _ := r[FieldTargetEntityID].(string)
	return id
}

func (r Relationship) Clone() Relationship {
	out := make(Relationship, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Signature returns a canonical serialization of the relationship with its
// synthetic id stripped. Relationships are identified by their full value:
// any property edit reads as delete-old plus add-new.
func (r Relationship) Signature() string {
	sig := make(map[string]any, len(r))
	for k, v := range r {
		if k == FieldRelationshipID {
			continue
		}
		sig[k] = v
	}
	return canonicalJSON(sig)
}

func (g *Graph) Clone() *Graph {
	out := &Graph{
		Entities:      make(map[string]Entity, len(g.Entities)),
		Relationships: make([]Relationship, 0, len(g.Relationships)),
	}
	for id, entity := range g.Entities {
		out.Entities[id] = entity.Clone()
	}
	for _, rel := range g.Relationships {
		out.Relationships = append(out.Relationships, rel.Clone())
	}
	return out
}

// Empty reports whether the graph holds no entities and no relationships.
func (g *Graph) Empty() bool {
	return len(g.Entities) == 0 && len(g.Relationships) == 0
}

// EntityIDs returns the graph's entity ids in sorted order.
func (g *Graph) EntityIDs() []string {
	ids := make([]string, 0, len(g.Entities))
	for id := range g.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DanglingEntityIDs returns every entity id referenced by a relationship
// endpoint that is not a key in the entity mapping, sorted. The persisted
// store tolerates dangling references; callers log them instead of failing.
func (g *Graph) DanglingEntityIDs() []string {
	seen := map[string]struct{}{}
	for _, rel := range g.Relationships {
		for _, id := range []string{rel.SourceID(), rel.TargetID()} {
			if id == "" {
				continue
			}
			if _, ok := g.Entities[id]; ok {
				continue
			}
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EncodeGraph serializes the graph as 2-space-indented JSON, the on-disk
// document format of the graph store. Indentation keeps stored graphs
// human-diffable.
func EncodeGraph(g *Graph) ([]byte, error) {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return data, nil
}

// DecodeGraph parses a stored graph document.
func DecodeGraph(data []byte) (*Graph, error) {
	g := NewGraph()
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	if g.Entities == nil {
		g.Entities = map[string]Entity{}
	}
	if g.Relationships == nil {
		g.Relationships = []Relationship{}
	}
	return g, nil
}

// Validate checks the basic shape of a subgraph before it enters the
// reconcile pipeline: every entity must carry a non-empty entity_id matching
// its key and a non-empty entity_names list. Candidate subgraphs come from a
// text-generation process and are validated up front rather than crashing
// deep inside delta computation.
func (g *Graph) Validate() error {
	if g.Entities == nil {
		return &MalformedSubgraphError{Reason: "missing entities mapping"}
	}
	for key, entity := range g.Entities {
		id := entity.ID()
		if id == "" {
			return &MalformedSubgraphError{Reason: fmt.Sprintf("entity %q has no entity_id", key)}
		}
		if id != key {
			return &MalformedSubgraphError{Reason: fmt.Sprintf("entity keyed %q carries entity_id %q", key, id)}
		}
		if entity.DisplayName() == "" {
			return &MalformedSubgraphError{Reason: fmt.Sprintf("entity %q has no entity_names", id)}
		}
	}
	for i, rel := range g.Relationships {
		if rel.SourceID() == "" || rel.TargetID() == "" {
			return &MalformedSubgraphError{Reason: fmt.Sprintf("relationship %d is missing an endpoint", i)}
		}
	}
	return nil
}

// canonicalJSON produces a deterministic serialization for equality checks.
// encoding/json sorts object keys, so two JSON-decoded values with equal
// content always produce identical bytes.
func canonicalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}
