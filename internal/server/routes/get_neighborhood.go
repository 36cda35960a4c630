package routes

import (
	"net/http"
	"strconv"

	"github.com/gridironlabs/scoutgraph/internal/server/middleware"
	"github.com/gridironlabs/scoutgraph/pkg/kg"
	"github.com/gridironlabs/scoutgraph/pkg/logger"

	"github.com/labstack/echo/v4"
)

const maxNeighborhoodHops = 10

// GetNeighborhoodHandler extracts the n-hop neighborhood around one or more
// seed entities. Entities whose neighbors fall outside the extracted view
// come back with has_external_neighbor set for that view.
func GetNeighborhoodHandler(c echo.Context) error {
	type neighborhoodResponse struct {
		Message string `json:"message,omitempty"`
	}

	graphID := c.Param("graph_id")
	seedIDs := c.QueryParams()["entity_id"]
	if graphID == "" || len(seedIDs) == 0 {
		return c.JSON(http.StatusBadRequest, neighborhoodResponse{
			Message: "Missing graph id or entity_id",
		})
	}

	hops := 1
	if raw := c.QueryParam("hops"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 || parsed > maxNeighborhoodHops {
			return c.JSON(http.StatusBadRequest, neighborhoodResponse{
				Message: "Invalid hops",
			})
		}
		hops = parsed
	}

	app := c.(*middleware.AppContext).App
	graph, err := app.Curator.Fetch(c.Request().Context(), graphID)
	if err != nil {
		logger.Error("Failed to fetch graph", "graph_id", graphID, "err", err)
		return c.JSON(http.StatusInternalServerError, neighborhoodResponse{
			Message: "Internal server error",
		})
	}

	for _, id := range seedIDs {
		if _, ok := graph.Entities[id]; !ok {
			return c.JSON(http.StatusNotFound, neighborhoodResponse{
				Message: "Entity not found: " + id,
			})
		}
	}

	return c.JSON(http.StatusOK, kg.Neighborhood(graph, seedIDs, hops))
}
