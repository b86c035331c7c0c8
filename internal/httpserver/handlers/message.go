package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/netstar-dev/advisor/internal/bus"
	"github.com/netstar-dev/advisor/internal/httpserver/deps"
	"github.com/netstar-dev/advisor/internal/logger"
)

const maxMessageBytes = 256 << 10

type messageError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// Message is the single command endpoint every UI surface posts to. The body
// carries an action-tagged JSON message; the shape of the answer depends on
// the action. Answers that cannot be produced within a dispatch turn come
// back through the correlator, so a slow assessment still yields a response
// on this request instead of an error.
func Message(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, messageError{Error: true, Message: "unreadable body"})
			return
		}

		cmd, err := bus.Decode(body)
		if err != nil {
			d.Logger.Debug("rejected message",
				logger.Error(err))
			writeJSON(w, http.StatusBadRequest, messageError{Error: true, Message: err.Error()})
			return
		}

		// A command that carries a requestId may answer out of band; register
		// before dispatch so the resolution cannot race the registration.
		requestID := ""
		if tc, ok := cmd.(*bus.GetCurrentTabCommand); ok && tc.RequestID != "" {
			requestID = tc.RequestID
			if !d.Correlator.Register(requestID) {
				writeJSON(w, http.StatusConflict, messageError{Error: true, Message: "duplicate requestId"})
				return
			}
		}

		result, err := d.Coordinator.HandleCommand(ctx, cmd)
		if err != nil {
			if requestID != "" {
				d.Correlator.Cancel(requestID)
			}
			d.Logger.Warn("command failed",
				logger.String("action", cmd.CommandAction()),
				logger.Error(err))
			writeJSON(w, http.StatusBadGateway, messageError{Error: true, Message: err.Error()})
			return
		}

		if result != nil {
			if requestID != "" {
				d.Correlator.Cancel(requestID)
			}
			writeJSON(w, http.StatusOK, result)
			return
		}

		if requestID == "" {
			// A nil result without a pending request is a legitimate empty
			// answer (e.g. no assessable tab in the window).
			writeJSON(w, http.StatusOK, json.RawMessage(`{}`))
			return
		}

		// Deferred answer: hold the request until the correlated message
		// lands or the reply deadline passes. A deadline pass is an empty
		// answer, never an error.
		payload, ok := d.Correlator.Await(ctx, requestID)
		if !ok {
			writeJSON(w, http.StatusOK, json.RawMessage(`{}`))
			return
		}
		writeJSON(w, http.StatusOK, json.RawMessage(payload))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
