package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gridironlabs/scoutgraph/internal/queue"
	"github.com/gridironlabs/scoutgraph/internal/server/middleware"
	"github.com/gridironlabs/scoutgraph/pkg/kg"
	"github.com/gridironlabs/scoutgraph/pkg/logger"

	"github.com/labstack/echo/v4"
)

// authorID resolves who a curation is attributed to. Service callers on the
// master API key pass the acting agent via X-Author-ID; end users are
// attributed by their token subject.
func authorID(c echo.Context) string {
	if h := c.Request().Header.Get("X-Author-ID"); h != "" {
		return h
	}
	if user := c.(*middleware.AppContext).User; user != nil {
		return user.AuthorID
	}
	return ""
}

// CurateGraphHandler runs a candidate subgraph through the curator
// synchronously and splices the resulting delta into the stored graph.
func CurateGraphHandler(c echo.Context) error {
	type curateBody struct {
		GraphID   string    `param:"graph_id" validate:"required"`
		Existing  *kg.Graph `json:"existing"`
		Candidate string    `json:"candidate" validate:"required"`
	}

	type curateResponse struct {
		Message string   `json:"message"`
		Missing []string `json:"missing_entity_ids,omitempty"`
	}

	data := new(curateBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, curateResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, curateResponse{
			Message: "Invalid request body",
		})
	}

	author := authorID(c)
	if author == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	existing := data.Existing
	if existing == nil {
		existing = kg.NewGraph()
	}

	candidate, err := kg.DecodeCandidate(data.Candidate)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, curateResponse{
			Message: err.Error(),
		})
	}

	app := c.(*middleware.AppContext).App
	err = app.Curator.ReconcileAndSplice(c.Request().Context(), existing, candidate, author, data.GraphID)
	if err != nil {
		var malformed *kg.MalformedSubgraphError
		var missing *kg.MissingValenceEntitiesError
		var ambiguous *kg.AmbiguousIdentityError
		switch {
		case errors.As(err, &malformed):
			return c.JSON(http.StatusUnprocessableEntity, curateResponse{
				Message: err.Error(),
			})
		case errors.As(err, &missing):
			return c.JSON(http.StatusUnprocessableEntity, curateResponse{
				Message: err.Error(),
				Missing: missing.MissingIDs,
			})
		case errors.As(err, &ambiguous):
			return c.JSON(http.StatusConflict, curateResponse{
				Message: err.Error(),
			})
		}
		logger.Error("Failed to curate graph", "graph_id", data.GraphID, "err", err)
		return c.JSON(http.StatusInternalServerError, curateResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, curateResponse{
		Message: "Graph curated successfully",
	})
}

// EnqueueCurateHandler validates a curation request just enough to queue it
// and hands it to the worker. Decode and valence failures surface in the
// worker logs, not the response.
func EnqueueCurateHandler(c echo.Context) error {
	type enqueueBody struct {
		GraphID   string    `param:"graph_id" validate:"required"`
		Existing  *kg.Graph `json:"existing"`
		Candidate string    `json:"candidate" validate:"required"`
	}

	type enqueueResponse struct {
		Message string `json:"message"`
	}

	data := new(enqueueBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, enqueueResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, enqueueResponse{
			Message: "Invalid request body",
		})
	}

	author := authorID(c)
	if author == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	job := queue.CurateJob{
		GraphID:   data.GraphID,
		AuthorID:  author,
		Existing:  data.Existing,
		Candidate: data.Candidate,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		logger.Error("Failed to marshal curate job", "graph_id", data.GraphID, "err", err)
		return c.JSON(http.StatusInternalServerError, enqueueResponse{
			Message: "Internal server error",
		})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if err := queue.PublishFIFO(ch, queue.CurateQueue, payload); err != nil {
		logger.Error("Failed to publish to curate_queue", "graph_id", data.GraphID, "err", err)
		return c.JSON(http.StatusInternalServerError, enqueueResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, enqueueResponse{
		Message: "Curation enqueued",
	})
}
