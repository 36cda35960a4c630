package routes

import (
	"net/http"

	"github.com/gridironlabs/scoutgraph/internal/server/middleware"
	"github.com/gridironlabs/scoutgraph/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetGraphHandler returns the full persisted graph for a graph id. A graph
// id that has never been written reads back as an empty graph.
func GetGraphHandler(c echo.Context) error {
	type getGraphParams struct {
		GraphID string `param:"graph_id" validate:"required"`
	}

	params := new(getGraphParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request"})
	}

	app := c.(*middleware.AppContext).App
	graph, err := app.Curator.Fetch(c.Request().Context(), params.GraphID)
	if err != nil {
		logger.Error("Failed to fetch graph", "graph_id", params.GraphID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, graph)
}
