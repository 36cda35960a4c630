package routes

import (
	"net/http"

	"github.com/gridironlabs/scoutgraph/pkg/kg"

	"github.com/labstack/echo/v4"
)

// GetSchemaHandler serves the JSON Schema of the candidate subgraph wire
// format, so agents producing candidates can be prompted against it.
func GetSchemaHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, kg.CandidateSchema())
}
