package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/netstar-dev/advisor/internal/httpserver/deps"
	"github.com/netstar-dev/advisor/internal/httpserver/handlers"
)

func init() { Register(registerStream) }

func registerStream(r chi.Router, d deps.Deps) {
	r.Get("/api/events", handlers.Stream(d))
}
