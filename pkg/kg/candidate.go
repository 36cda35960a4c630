package kg

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeCandidate parses a candidate replacement subgraph out of raw agent
// output. Generation processes emit imperfect JSON, so decoding falls back
// through double-encoded strings and jsonrepair before giving up. The
// entities section is accepted either as a list of entity objects (the
// format agents are prompted to produce) or as an id-keyed mapping, and is
// normalized to the mapping form. The result is shape-validated.
func DecodeCandidate(text string) (*Graph, error) {
	var raw struct {
		Entities      json.RawMessage `json:"entities"`
		Relationships []Relationship  `json:"relationships"`
	}
	if err := unmarshalFlexible(text, &raw); err != nil {
		return nil, &MalformedSubgraphError{Reason: err.Error()}
	}
	if len(raw.Entities) == 0 || string(raw.Entities) == "null" {
		return nil, &MalformedSubgraphError{Reason: "missing entities"}
	}

	g := NewGraph()
	g.Relationships = raw.Relationships
	if g.Relationships == nil {
		g.Relationships = []Relationship{}
	}

	var asList []Entity
	if err := json.Unmarshal(raw.Entities, &asList); err == nil {
		for _, entity := range asList {
			id := entity.ID()
			if id == "" {
				return nil, &MalformedSubgraphError{Reason: "entity in list has no entity_id"}
			}
			g.Entities[id] = entity
		}
	} else if err := json.Unmarshal(raw.Entities, &g.Entities); err != nil {
		return nil, &MalformedSubgraphError{Reason: fmt.Sprintf("entities is neither a list nor a mapping: %v", err)}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// unmarshalFlexible attempts standard unmarshaling first, then unwraps a
// double-encoded JSON string, then repairs the input.
func unmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal failed after repair: %w", err)
	}
	return nil
}
