package server

import (
	"github.com/gridironlabs/scoutgraph/internal/server/middleware"
	"github.com/gridironlabs/scoutgraph/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Graph routes
	apiRoutes.GET("/graphs", routes.ListGraphsHandler, middleware.RequirePermission("graph.read"))
	apiRoutes.GET("/graphs/:graph_id", routes.GetGraphHandler, middleware.RequirePermission("graph.read"))
	apiRoutes.GET("/graphs/:graph_id/neighborhood", routes.GetNeighborhoodHandler, middleware.RequirePermission("graph.read"))

	// Curation routes
	apiRoutes.POST("/graphs/:graph_id/curate", routes.CurateGraphHandler, middleware.RequirePermission("graph.curate"))
	apiRoutes.POST("/graphs/:graph_id/curate/enqueue", routes.EnqueueCurateHandler, middleware.RequirePermission("graph.curate"))

	// Candidate wire format
	apiRoutes.GET("/schema", routes.GetSchemaHandler, middleware.RequirePermission("graph.read"))
}
