package kg

import (
	"fmt"
	"strings"
)

// MalformedSubgraphError reports a subgraph that fails basic shape
// validation before it enters the reconcile pipeline.
type MalformedSubgraphError struct {
	Reason string
}

func (e *MalformedSubgraphError) Error() string {
	return fmt.Sprintf("malformed subgraph: %s", e.Reason)
}

// MissingValenceEntitiesError reports a candidate subgraph that dropped one
// or more valence entities. Accepting such a candidate would orphan
// relationships elsewhere in the persisted graph, so the curation attempt is
// rejected outright. The offending ids and the rejected candidate are kept
// for diagnostic logging and manual replay.
type MissingValenceEntitiesError struct {
	MissingIDs []string
	Candidate  *Graph
}

func (e *MissingValenceEntitiesError) Error() string {
	return fmt.Sprintf(
		"candidate subgraph is missing valence entities: %s",
		strings.Join(e.MissingIDs, ", "),
	)
}

// AmbiguousIdentityError reports a candidate entity whose signature matches
// more than one existing entity. Picking one by insertion order would be
// silent and order-dependent, so the curation attempt fails instead.
type AmbiguousIdentityError struct {
	NewID  string
	OldIDs []string
}

func (e *AmbiguousIdentityError) Error() string {
	return fmt.Sprintf(
		"entity %q matches multiple existing entities by signature: %s",
		e.NewID, strings.Join(e.OldIDs, ", "),
	)
}
