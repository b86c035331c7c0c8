package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/netstar-dev/advisor/internal/httpserver/deps"
	"github.com/netstar-dev/advisor/internal/httpserver/handlers"
)

func init() { Register(registerMessage) }

// The per-route timeout must outlive the scan boundary's own timeout plus
// the reply deadline, so a slow upstream surfaces as a scan failure rather
// than a cut connection.
func registerMessage(r chi.Router, d deps.Deps) {
	r.With(middleware.Timeout(30 * time.Second)).Post("/api/message", handlers.Message(d))
}
