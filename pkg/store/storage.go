package store

import "context"

// GraphStore is the durable keyed object store holding one serialized graph
// document per graph id. A graph that has never been written reads back as
// absent; the caller decides what an absent graph means.
//
// Every write is a full-document replace. The store itself provides no
// locking or versioning; callers that can race must serialize their
// read-modify-write cycles externally.
type GraphStore interface {
	// Get returns the serialized graph document for graphID, or found=false
	// if no document exists.
	Get(ctx context.Context, graphID string) (data []byte, found bool, err error)

	// Put overwrites the document for graphID.
	Put(ctx context.Context, graphID string, data []byte) error
}

// Lister is implemented by stores that can enumerate their graph ids.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}
