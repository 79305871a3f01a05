package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"payflow-backend/infrastructure/monitoring"
	"payflow-backend/pkg/common"
)

// MonitoringHandler exposes the event monitor over HTTP, including the
// live Server-Sent Events stream.
type MonitoringHandler struct {
	monitor  *monitoring.Monitor
	streamer *monitoring.EventStreamer
	logger   *zap.Logger
}

// NewMonitoringHandler creates a new monitoring handler
func NewMonitoringHandler(monitor *monitoring.Monitor, streamer *monitoring.EventStreamer, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		monitor:  monitor,
		streamer: streamer,
		logger:   logger,
	}
}

// GetRecentEvents handles GET /monitoring/events?limit=&session_id=&level=
func (h *MonitoringHandler) GetRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	level := r.URL.Query().Get("level")
	if level != "" && !monitoring.LevelValid(level) {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "level must be one of: debug, info, warning, error")
		return
	}

	events := h.monitor.GetRecentEvents(limit, r.URL.Query().Get("session_id"), level)
	common.RespondJSON(w, r, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// GetSessions handles GET /monitoring/sessions
func (h *MonitoringHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.monitor.GetActiveSessions()

	withStats := make(map[string]interface{}, len(sessions))
	for id, session := range sessions {
		stats, err := h.monitor.GetSessionStats(id)
		if err != nil {
			continue
		}
		withStats[id] = map[string]interface{}{
			"session": session,
			"stats":   stats,
		}
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]interface{}{"sessions": withStats})
}

// GetSessionDetails handles GET /monitoring/sessions/{sessionID}
func (h *MonitoringHandler) GetSessionDetails(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	stats, err := h.monitor.GetSessionStats(sessionID)
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}

	sessions := h.monitor.GetActiveSessions()
	common.RespondJSON(w, r, http.StatusOK, map[string]interface{}{
		"session": sessions[sessionID],
		"events":  h.monitor.GetRecentEvents(500, sessionID, ""),
		"stats":   stats,
	})
}

// StreamEvents handles GET /monitoring/stream as a Server-Sent Events
// feed. Each frame is written as a "data: <json>" line and flushed
// immediately. The stream runs until the client disconnects.
func (h *MonitoringHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		common.RespondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(msg monitoring.StreamMessage) error {
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := h.streamer.Stream(r.Context(), send); err != nil && r.Context().Err() == nil {
		h.logger.Warn("Event stream ended", zap.Error(err))
	}
}
