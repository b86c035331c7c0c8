package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/netstar-dev/advisor/internal/httpserver/deps"
	"github.com/netstar-dev/advisor/internal/httpserver/handlers"
)

func init() { Register(registerInfra) }

func registerInfra(r chi.Router, d deps.Deps) {
	r.Get("/api/infra", handlers.Infra(d))
}
