package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/netstar-dev/advisor/internal/httpserver/deps"
	"github.com/netstar-dev/advisor/internal/httpserver/handlers"
)

func init() { Register(registerReadyz) }

func registerReadyz(r chi.Router, d deps.Deps) {
	r.Get("/readyz", handlers.Readyz(d))
}
