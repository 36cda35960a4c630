package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gridironlabs/scoutgraph/pkg/kg"
	"github.com/gridironlabs/scoutgraph/pkg/logger"
)

// CurateJob is the payload of a queued curation request. Candidate carries
// the raw agent output; it is repaired and decoded at processing time so a
// malformed candidate dead-letters with its original text intact.
type CurateJob struct {
	GraphID   string    `json:"graph_id"`
	AuthorID  string    `json:"author_id"`
	Existing  *kg.Graph `json:"existing_subgraph"`
	Candidate string    `json:"candidate"`
}

// ProcessCurateMessage decodes and executes one queued curation job.
func ProcessCurateMessage(ctx context.Context, curator *kg.Curator, msg string) error {
	job := new(CurateJob)
	if err := json.Unmarshal([]byte(msg), job); err != nil {
		return fmt.Errorf("failed to decode curate job: %w", err)
	}
	if job.GraphID == "" {
		return fmt.Errorf("curate job has no graph_id")
	}
	if job.Existing == nil {
		job.Existing = kg.NewGraph()
	}

	candidate, err := kg.DecodeCandidate(job.Candidate)
	if err != nil {
		return err
	}

	start := time.Now()
	err = curator.ReconcileAndSplice(ctx, job.Existing, candidate, job.AuthorID, job.GraphID)
	if err != nil {
		return err
	}

	logger.Info(
		"[Queue] Curation completed",
		"graph_id", job.GraphID,
		"author_id", job.AuthorID,
		"duration_sec", time.Since(start).Seconds(),
	)
	return nil
}
