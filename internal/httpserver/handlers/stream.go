package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/netstar-dev/advisor/internal/httpserver/deps"
	"github.com/netstar-dev/advisor/internal/logger"
)

const streamBuffer = 64

// Stream pushes broadcast envelopes (icon updates, overlay commands,
// notifications, correlated tab answers) to a surface as server-sent
// events. Surfaces filter by action on their side, the way a runtime
// message listener would.
func Stream(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		ch, cancel := d.Bus.Subscribe(streamBuffer)
		defer cancel()

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-store")
		h.Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		d.Logger.Debug("surface connected to event stream",
			logger.String("remote_ip", r.RemoteAddr))

		for {
			select {
			case env := <-ch:
				data, err := json.Marshal(env)
				if err != nil {
					continue
				}
				if _, err := w.Write([]byte("data: ")); err != nil {
					return
				}
				if _, err := w.Write(data); err != nil {
					return
				}
				if _, err := w.Write([]byte("\n\n")); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				d.Logger.Debug("surface left the event stream",
					logger.String("remote_ip", r.RemoteAddr))
				return
			}
		}
	}
}
