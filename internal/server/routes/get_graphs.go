package routes

import (
	"net/http"

	"github.com/gridironlabs/scoutgraph/internal/server/middleware"
	"github.com/gridironlabs/scoutgraph/pkg/logger"
	"github.com/gridironlabs/scoutgraph/pkg/store"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

// ListGraphsHandler lists all stored graphs with their entity and
// relationship counts. Counts are fetched concurrently per graph.
func ListGraphsHandler(c echo.Context) error {
	type graphSummary struct {
		GraphID       string `json:"graph_id"`
		Entities      int    `json:"entities"`
		Relationships int    `json:"relationships"`
	}

	type listGraphsResponse struct {
		Message string         `json:"message"`
		Graphs  []graphSummary `json:"graphs"`
	}

	app := c.(*middleware.AppContext).App
	lister, ok := app.Store.(store.Lister)
	if !ok {
		return c.JSON(http.StatusNotImplemented, listGraphsResponse{
			Message: "Listing is not supported by this store",
		})
	}

	ctx := c.Request().Context()
	ids, err := lister.List(ctx)
	if err != nil {
		logger.Error("Failed to list graphs", "err", err)
		return c.JSON(http.StatusInternalServerError, listGraphsResponse{
			Message: "Internal server error",
		})
	}

	summaries := make([]graphSummary, len(ids))
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for i := range ids {
		idx := i
		id := ids[i]
		eg.Go(func() error {
			graph, err := app.Curator.Fetch(gCtx, id)
			if err != nil {
				return err
			}
			summaries[idx] = graphSummary{
				GraphID:       id,
				Entities:      len(graph.Entities),
				Relationships: len(graph.Relationships),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logger.Error("Failed to load graphs", "err", err)
		return c.JSON(http.StatusInternalServerError, listGraphsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, listGraphsResponse{
		Message: "OK",
		Graphs:  summaries,
	})
}
