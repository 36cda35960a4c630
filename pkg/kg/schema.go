package kg

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

// CandidateEntity documents the wire shape of one entity in a candidate
// replacement subgraph. Agents may attach arbitrary further properties;
// those pass through the core untouched.
type CandidateEntity struct {
	EntityID            string   `json:"entity_id" jsonschema_description:"Provisional identifier, unique within this subgraph. Reuse the existing entity_id when reproducing an entity unchanged."`
	EntityNames         []string `json:"entity_names" jsonschema_description:"Known names for the entity; the first is the canonical display name."`
	HasExternalNeighbor bool     `json:"has_external_neighbor" jsonschema_description:"True if relationships outside this subgraph reference the entity. Entities flagged true must be reproduced."`
}

// CandidateRelationship documents the wire shape of one relationship in a
// candidate replacement subgraph.
type CandidateRelationship struct {
	SourceEntityID string `json:"source_entity_id" jsonschema_description:"entity_id of the relationship's source."`
	TargetEntityID string `json:"target_entity_id" jsonschema_description:"entity_id of the relationship's target."`
}

// CandidateSubgraph documents the candidate replacement subgraph wire
// format that DecodeCandidate accepts.
type CandidateSubgraph struct {
	Entities      []CandidateEntity       `json:"entities"`
	Relationships []CandidateRelationship `json:"relationships"`
}

// CandidateSchema returns the JSON Schema of the candidate subgraph wire
// format, suitable for grounding agent prompts or structured output
// configuration. Additional properties are allowed everywhere because
// entities and relationships are free-form beyond the well-known fields.
func CandidateSchema() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(CandidateSubgraph{})
	v := reflect.New(t).Interface()
	return reflector.Reflect(v)
}
