package monitoring

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"payflow-backend/pkg/errors"
)

// DefaultCapacity bounds the in-memory event log; when full, the
// oldest events are evicted first.
const DefaultCapacity = 1000

// Event types recorded in the monitor log.
const (
	EventTypeSessionStart = "session_start"
	EventTypeSessionEnd   = "session_end"
	EventTypeAgentAction  = "agent_action"
)

// Severity levels attached to events.
const (
	LevelDebug   = "debug"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Session statuses. Status is free-form; these are the conventional values.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Event is one entry in the monitoring log. Seq increases monotonically
// for the lifetime of the monitor and never repeats, even after old
// events are evicted, so consumers can resume from the last Seq they saw.
type Event struct {
	Seq       uint64                 `json:"seq"`
	SessionID string                 `json:"session_id"`
	Type      string                 `json:"type"`
	AgentType string                 `json:"agent_type,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Message   string                 `json:"message"`
	Level     string                 `json:"level"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Session tracks one analysis session registered with the monitor.
type Session struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	UserID       string     `json:"user_id,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Status       string     `json:"status"`
	EventsCount  int        `json:"events_count"`
	LastActivity time.Time  `json:"last_activity"`
}

// SessionStats is a recomputed aggregate over the events currently in
// the log for one session. Evicted events no longer count.
type SessionStats struct {
	TotalEvents     int            `json:"total_events"`
	EventsByType    map[string]int `json:"events_by_type"`
	EventsByLevel   map[string]int `json:"events_by_level"`
	AgentsInvolved  []string       `json:"agents_involved"`
	DurationSeconds float64        `json:"duration_seconds"`
	Status          string         `json:"status"`
}

// Subscriber receives every event synchronously as it is recorded.
// Callbacks run under the monitor's lock and must not call back into
// the monitor or block.
type Subscriber func(Event)

// Monitor is a bounded in-memory event bus for agent activity: a ring
// log of recent events, the session table, and live subscribers.
// All methods are safe for concurrent use. There is no process-wide
// singleton; construct one instance and inject it.
type Monitor struct {
	mu          sync.Mutex
	events      []Event
	start       int
	count       int
	seq         uint64
	queryCap    int
	sessions    map[string]*Session
	subscribers map[int]Subscriber
	nextToken   int
	logger      *zap.Logger
}

// NewMonitor creates a monitor keeping at most capacity events.
// A capacity of zero or less falls back to DefaultCapacity.
func NewMonitor(capacity int, logger *zap.Logger) *Monitor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		events:      make([]Event, capacity),
		sessions:    make(map[string]*Session),
		subscribers: make(map[int]Subscriber),
		logger:      logger,
	}
}

// StartSession registers a new session and records a session_start
// event. Restarting an existing session ID overwrites it.
func (m *Monitor) StartSession(sessionID, description, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.sessions[sessionID] = &Session{
		ID:           sessionID,
		Description:  description,
		UserID:       userID,
		StartedAt:    now,
		Status:       StatusActive,
		LastActivity: now,
	}

	m.addEventLocked(Event{
		SessionID: sessionID,
		Type:      EventTypeSessionStart,
		Message:   fmt.Sprintf("session started: %s", description),
		Level:     LevelInfo,
		Data:      map[string]interface{}{"description": description, "user_id": userID},
	})
}

// EndSession marks a session finished with the given status and records
// a session_end event. Unknown session IDs are ignored. The session
// stays in the table so its stats remain queryable.
func (m *Monitor) EndSession(sessionID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return
	}

	now := time.Now()
	session.Status = status
	session.EndedAt = &now

	m.addEventLocked(Event{
		SessionID: sessionID,
		Type:      EventTypeSessionEnd,
		Message:   fmt.Sprintf("session ended with status: %s", status),
		Level:     LevelInfo,
		Data:      map[string]interface{}{"status": status},
	})
}

// LogAgentAction records one agent action. Unknown session IDs are
// accepted; the event is logged without touching the session table.
func (m *Monitor) LogAgentAction(sessionID, agentType, action, message, level string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[sessionID]; ok {
		session.EventsCount++
		session.LastActivity = time.Now()
	}

	m.addEventLocked(Event{
		SessionID: sessionID,
		Type:      EventTypeAgentAction,
		AgentType: agentType,
		Action:    action,
		Message:   message,
		Level:     level,
		Data:      data,
	})
}

// LogVariableCreation records the registration of a payroll variable.
func (m *Monitor) LogVariableCreation(sessionID, variableName, variableType, formula string) {
	m.LogAgentAction(sessionID, "payroll_agent", "variable_creation",
		fmt.Sprintf("variable created: %s (%s)", variableName, variableType),
		LevelInfo,
		map[string]interface{}{
			"variable_name": variableName,
			"variable_type": variableType,
			"formula":       formula,
		})
}

// LogGraphUpdate records a structural change to the impact graph.
func (m *Monitor) LogGraphUpdate(sessionID string, nodesCount, edgesCount int, updateType string) {
	m.LogAgentAction(sessionID, "impact_graph", "graph_update",
		fmt.Sprintf("graph updated: %d nodes, %d edges", nodesCount, edgesCount),
		LevelDebug,
		map[string]interface{}{
			"nodes_count": nodesCount,
			"edges_count": edgesCount,
			"update_type": updateType,
		})
}

// LogError records an agent failure as an error-level action event.
func (m *Monitor) LogError(sessionID, agentType, errorMessage string, cause error) {
	data := map[string]interface{}{"error_message": errorMessage}
	if cause != nil {
		data["cause"] = cause.Error()
	}
	m.LogAgentAction(sessionID, agentType, "error",
		fmt.Sprintf("error: %s", errorMessage), LevelError, data)
}

// Subscribe registers a callback for every subsequent event and
// returns a token for Unsubscribe. Function values are not comparable
// in Go, so identity is carried by the token rather than the callback.
func (m *Monitor) Subscribe(fn Subscriber) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := m.nextToken
	m.nextToken++
	m.subscribers[token] = fn
	return token
}

// Unsubscribe removes a previously registered callback.
// Unknown tokens are ignored.
func (m *Monitor) Unsubscribe(token int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, token)
}

// SetQueryCap bounds how many events GetRecentEvents may return per
// call, regardless of the limit the caller asks for. Zero or less
// removes the bound.
func (m *Monitor) SetQueryCap(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCap = n
}

// GetRecentEvents returns up to limit of the newest events, oldest
// first, optionally filtered by session ID and level. Filtering happens
// before the limit is applied, so the result is the newest limit events
// among those that match. The configured query cap overrides larger or
// unbounded limits.
func (m *Monitor) GetRecentEvents(limit int, sessionID, level string) []Event {
	m.mu.Lock()
	events := m.copyLocked()
	queryCap := m.queryCap
	m.mu.Unlock()

	if queryCap > 0 && (limit <= 0 || limit > queryCap) {
		limit = queryCap
	}

	if sessionID != "" || level != "" {
		filtered := events[:0]
		for _, e := range events {
			if sessionID != "" && e.SessionID != sessionID {
				continue
			}
			if level != "" && e.Level != level {
				continue
			}
			filtered = append(filtered, e)
		}
		events = filtered
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events
}

// EventsSince returns every event in the log with Seq greater than seq,
// oldest first. Events evicted from the ring are gone for good; callers
// that fall too far behind simply miss them.
func (m *Monitor) EventsSince(seq uint64) []Event {
	events := m.snapshot()
	for i, e := range events {
		if e.Seq > seq {
			return events[i:]
		}
	}
	return nil
}

// LatestSeq returns the sequence number of the newest event,
// zero when nothing has been logged yet.
func (m *Monitor) LatestSeq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

// GetActiveSessions returns a copy of every known session, including
// ended ones that have not been cleaned up.
func (m *Monitor) GetActiveSessions() map[string]Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Session, len(m.sessions))
	for id, session := range m.sessions {
		out[id] = *session
	}
	return out
}

// GetSessionStats recomputes the aggregate statistics for one session
// by scanning the current event log. The session record and matching
// events are copied under the lock; aggregation runs on the copy.
// Fails with SESSION_NOT_FOUND for unknown session IDs.
func (m *Monitor) GetSessionStats(sessionID string) (SessionStats, error) {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return SessionStats{}, errors.NewSessionNotFoundError(sessionID)
	}
	snap := *session
	events := make([]Event, 0, m.count)
	for i := 0; i < m.count; i++ {
		e := m.events[(m.start+i)%len(m.events)]
		if e.SessionID == sessionID {
			events = append(events, e)
		}
	}
	m.mu.Unlock()

	stats := SessionStats{
		EventsByType:   map[string]int{},
		EventsByLevel:  map[string]int{},
		AgentsInvolved: []string{},
		Status:         snap.Status,
	}

	agents := map[string]bool{}
	for _, e := range events {
		stats.TotalEvents++
		stats.EventsByType[e.Type]++
		stats.EventsByLevel[e.Level]++
		if e.AgentType != "" && !agents[e.AgentType] {
			agents[e.AgentType] = true
			stats.AgentsInvolved = append(stats.AgentsInvolved, e.AgentType)
		}
	}

	if snap.EndedAt != nil {
		stats.DurationSeconds = snap.EndedAt.Sub(snap.StartedAt).Seconds()
	} else {
		stats.DurationSeconds = time.Since(snap.StartedAt).Seconds()
	}

	return stats, nil
}

// ClearOldEvents drops every event older than maxAge from the log.
// Sequence numbers of the survivors are unchanged.
func (m *Monitor) ClearOldEvents(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]Event, 0, m.count)
	for i := 0; i < m.count; i++ {
		e := m.events[(m.start+i)%len(m.events)]
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}

	removed := m.count - len(kept)
	capacity := len(m.events)
	m.events = make([]Event, capacity)
	copy(m.events, kept)
	m.start = 0
	m.count = len(kept)
	return removed
}

// addEventLocked stamps, stores and fans out one event.
// The caller must hold m.mu.
func (m *Monitor) addEventLocked(e Event) {
	m.seq++
	e.Seq = m.seq
	e.Timestamp = time.Now()

	if m.count == len(m.events) {
		m.events[m.start] = e
		m.start = (m.start + 1) % len(m.events)
	} else {
		m.events[(m.start+m.count)%len(m.events)] = e
		m.count++
	}

	for token, fn := range m.subscribers {
		m.notify(token, fn, e)
	}
}

// notify invokes one subscriber, isolating panics so a broken callback
// cannot take down the caller that logged the event.
func (m *Monitor) notify(token int, fn Subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("monitor subscriber panicked",
				zap.Int("token", token),
				zap.Uint64("seq", e.Seq),
				zap.Any("panic", r))
		}
	}()
	fn(e)
}

// snapshot copies the current log in order under the lock.
func (m *Monitor) snapshot() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyLocked()
}

// copyLocked copies the ring contents in order.
// The caller must hold m.mu.
func (m *Monitor) copyLocked() []Event {
	out := make([]Event, 0, m.count)
	for i := 0; i < m.count; i++ {
		out = append(out, m.events[(m.start+i)%len(m.events)])
	}
	return out
}

// LevelValid reports whether level is one of the recognized severities.
func LevelValid(level string) bool {
	switch strings.ToLower(level) {
	case LevelDebug, LevelInfo, LevelWarning, LevelError:
		return true
	}
	return false
}
