package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/podiumlabs/podium/internal/core"
)

// streamTimeout bounds how long a single stream connection stays open.
const streamTimeout = 30 * time.Minute

// handleStreamDebate streams debate progress using Server-Sent Events.
// Recorded turns are replayed first, then new turns are pushed as the
// engine appends them, and a final debate_complete event carries the
// terminal snapshot.
func (h *Handler) handleStreamDebate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := h.engine.GetStatus(id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "debate not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("Streaming unsupported: ResponseWriter does not implement http.Flusher")
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	slog.Debug("New debate stream connection", "id", id, "remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, turn := range d.Transcript {
		h.sendSSEEvent(w, flusher, "turn_complete", turn)
	}
	if d.Status.Terminal() {
		h.sendSSEEvent(w, flusher, "debate_complete", d)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), streamTimeout)
	defer cancel()

	interval := h.streamInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sent := len(d.Transcript)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Stream connection closed", "id", id)
			return
		case <-ticker.C:
			d, err := h.engine.GetStatus(id)
			if err != nil {
				slog.Error("Stream error fetching debate", "id", id, "error", err)
				h.sendSSEError(w, flusher, "debate no longer available")
				return
			}

			for ; sent < len(d.Transcript); sent++ {
				h.sendSSEEvent(w, flusher, "turn_complete", d.Transcript[sent])
			}

			if d.Status.Terminal() {
				slog.Debug("Debate finished during stream", "id", id)
				h.sendSSEEvent(w, flusher, "debate_complete", d)
				return
			}
		}
	}
}

// sendSSEEvent writes one server-sent event and flushes it.
func (h *Handler) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		slog.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		slog.Error("Failed to write SSE event", "error", err)
		return
	}
	flusher.Flush()
}

// sendSSEError sends an error event.
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, message string) {
	h.sendSSEEvent(w, flusher, "error", map[string]string{"message": message})
}
