package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/gridironlabs/scoutgraph/pkg/kg"
	"github.com/gridironlabs/scoutgraph/pkg/store"
)

// AppUser identifies the authenticated caller. AuthorID is what ends up in
// updated_by on entities the caller adds.
type AppUser struct {
	AuthorID    string
	Permissions []string
}

// App bundles the shared service dependencies handed to every request.
type App struct {
	Store          store.GraphStore
	Curator        *kg.Curator
	Queue          *amqp091.Channel
	Key            *keyfunc.Keyfunc
	MasterAPIKey   string
	MasterAuthorID string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
