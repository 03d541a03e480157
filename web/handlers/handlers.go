// Package handlers provides the HTTP API for the debate engine.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/podiumlabs/podium/internal/core"
	"github.com/podiumlabs/podium/internal/debate"
	"github.com/podiumlabs/podium/internal/export"
	"github.com/podiumlabs/podium/internal/topic"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine *debate.Engine
	topics topic.Source

	// streamInterval is the SSE poll interval; zero means one second.
	// Overridden in tests.
	streamInterval time.Duration
}

// New creates a new Handler.
func New(engine *debate.Engine, topics topic.Source) *Handler {
	return &Handler{
		engine: engine,
		topics: topics,
	}
}

// Router builds the chi router with all API routes registered.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/debates", h.handleStartDebate)
		r.Get("/debates", h.handleListDebates)
		r.Get("/debates/{id}", h.handleGetDebate)
		r.Get("/debates/{id}/stream", h.handleStreamDebate)
		r.Post("/debates/{id}/cancel", h.handleCancelDebate)
		r.Get("/debates/{id}/export/{format}", h.handleExportDebate)
		r.Get("/topics", h.handleSuggestTopic)
	})

	return r
}

// requestLogger logs each request with slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

type startDebateRequest struct {
	TopicHint string `json:"topic_hint,omitempty"`
}

type startDebateResponse struct {
	DebateID string `json:"debate_id"`
}

func (h *Handler) handleStartDebate(w http.ResponseWriter, r *http.Request) {
	var req startDebateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	id, err := h.engine.StartDebate(r.Context(), req.TopicHint)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, startDebateResponse{DebateID: id})
}

func (h *Handler) handleListDebates(w http.ResponseWriter, r *http.Request) {
	summaries := h.engine.ListDebates()
	writeJSON(w, http.StatusOK, map[string]any{"debates": summaries})
}

func (h *Handler) handleGetDebate(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleCancelDebate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Cancel(id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "debate not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancellation requested"})
}

func (h *Handler) handleExportDebate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := export.Format(chi.URLParam(r, "format"))

	d, err := h.engine.GetStatus(id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "debate not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	exporter, err := export.GetExporter(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filename := export.GenerateFilename(d, exporter.FileExtension())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	switch format {
	case export.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	case export.FormatPDF:
		w.Header().Set("Content-Type", "application/pdf")
	default:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}

	if err := exporter.Export(d, w); err != nil {
		slog.Error("Export failed", "id", id, "format", format, "error", err)
	}
}

func (h *Handler) handleSuggestTopic(w http.ResponseWriter, r *http.Request) {
	hint := r.URL.Query().Get("hint")
	t, err := h.topics.Topic(r.Context(), hint)
	if err != nil {
		if errors.Is(err, topic.ErrTopicUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "no topics available")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"topic": t})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
