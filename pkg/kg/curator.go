package kg

import (
	"context"
	"fmt"
	"time"

	"github.com/gridironlabs/scoutgraph/pkg/logger"
	"github.com/gridironlabs/scoutgraph/pkg/store"
)

// Locker serializes access to a named resource. The curator takes a
// per-graph lock around its fetch-modify-persist cycle so that two
// concurrent curation attempts against the same graph cannot silently drop
// each other's writes.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Curator owns the only write path into persisted graphs. It composes the
// reconcile pipeline: identity resolution, id restoration, delta, metadata
// stamping and the splice.
type Curator struct {
	store  store.GraphStore
	locker Locker
	now    func() time.Time
}

// NewCuratorParams configures a Curator. Locker may be nil when the caller
// already serializes writes (e.g. a single-consumer queue worker running
// without replicas); Now defaults to time.Now.
type NewCuratorParams struct {
	Store  store.GraphStore
	Locker Locker
	Now    func() time.Time
}

func NewCurator(params NewCuratorParams) (*Curator, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("curator requires a graph store")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Curator{
		store:  params.Store,
		locker: params.Locker,
		now:    now,
	}, nil
}

// ReconcileAndSplice replaces old with candidate inside the persisted graph
// identified by graphID.
//
// The candidate is an untrusted replacement for old produced by a
// text-generation process: its entity ids are provisional and its content
// may be inconsistent. The pipeline validates its shape, restores preserved
// entities to their original ids, rejects it if any valence entity went
// missing, computes the minimal delta, stamps authorship metadata onto
// genuinely new entities and splices the delta into the full graph under a
// per-graph lock.
//
// A failed attempt leaves the persisted graph exactly as it was: the single
// Put at the end of the pipeline is the only mutation.
func (c *Curator) ReconcileAndSplice(ctx context.Context, old, candidate *Graph, authorID, graphID string) error {
	if err := candidate.Validate(); err != nil {
		return err
	}

	restored, err := RestoreOriginalIDs(old, candidate)
	if err != nil {
		return err
	}

	delta := ComputeDelta(old, restored)
	if delta.Empty() {
		logger.Info("[Curator] Candidate matches stored subgraph, nothing to splice", "graph_id", graphID)
		return nil
	}

	splice := func(ctx context.Context) error {
		return c.splice(ctx, delta, old, restored, authorID, graphID)
	}
	if c.locker != nil {
		return c.locker.WithLock(ctx, "graph:"+graphID, splice)
	}
	return splice(ctx)
}

func (c *Curator) splice(ctx context.Context, delta Delta, old, restored *Graph, authorID, graphID string) error {
	graph, err := c.fetch(ctx, graphID)
	if err != nil {
		return err
	}

	taken := takenIDs(graph, old, restored)
	add, err := StampMetadata(delta.Add, authorID, c.now(), taken)
	if err != nil {
		return err
	}

	graph = Apply(graph, delta.Remove, add)

	if dangling := graph.DanglingEntityIDs(); len(dangling) > 0 {
		logger.Warn(
			"[Curator] Relationships refer to non-existent entities",
			"graph_id", graphID,
			"entity_ids", dangling,
		)
	}

	data, err := EncodeGraph(graph)
	if err != nil {
		return err
	}
	if err := c.store.Put(ctx, graphID, data); err != nil {
		return fmt.Errorf("failed to persist graph %s: %w", graphID, err)
	}

	logger.Info(
		"[Curator] Spliced subgraph",
		"graph_id", graphID,
		"author_id", authorID,
		"entities_added", len(add.Entities),
		"entities_removed", len(delta.Remove.Entities),
		"relationships_added", len(add.Relationships),
		"relationships_removed", len(delta.Remove.Relationships),
	)
	return nil
}

// Fetch returns the persisted graph for graphID, or an empty graph if the
// id has never been written.
func (c *Curator) Fetch(ctx context.Context, graphID string) (*Graph, error) {
	return c.fetch(ctx, graphID)
}

func (c *Curator) fetch(ctx context.Context, graphID string) (*Graph, error) {
	data, found, err := c.store.Get(ctx, graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch graph %s: %w", graphID, err)
	}
	if !found {
		return NewGraph(), nil
	}
	return DecodeGraph(data)
}

func takenIDs(graphs ...*Graph) func(id string) bool {
	ids := map[string]struct{}{}
	for _, g := range graphs {
		for id := range g.Entities {
			ids[id] = struct{}{}
		}
	}
	return func(id string) bool {
		_, ok := ids[id]
		return ok
	}
}
