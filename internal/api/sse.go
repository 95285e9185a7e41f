package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HandleEvents streams bridge events over SSE. Each envelope from the hub
// becomes one SSE message; heartbeats keep idle connections alive.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.hub.Subscribe(r.Context())
	defer sub.Close()

	h.metrics.IncrementSubscribers(r.Context())
	defer h.metrics.DecrementSubscribers(r.Context())

	h.logger.Debugw("event stream connected", "remote_addr", r.RemoteAddr)

	h.sendEvent(w, flusher, "connected", "0", nil)

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debugw("event stream client disconnected", "remote_addr", r.RemoteAddr)
			return

		case <-heartbeat.C:
			h.sendEvent(w, flusher, "heartbeat", "0", map[string]any{
				"timestamp": time.Now().Unix(),
			})

		case env, open := <-sub.Channel():
			if !open {
				return
			}
			h.sendEvent(w, flusher, env.Type, env.ID, env)
		}
	}
}

func (h *Handler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType, id string, data any) {
	payload := []byte("{}")
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			h.logger.Errorw("Failed to marshal SSE data", "error", err)
			return
		}
		payload = encoded
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "id: %s\n", id)
	fmt.Fprintf(w, "data: %s\n\n", payload)

	flusher.Flush()
}
