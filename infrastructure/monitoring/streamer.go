package monitoring

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often the streamer checks for new events
// between heartbeats.
const DefaultPollInterval = 2 * time.Second

// defaultBacklogSize is how many recent events a new stream replays
// before switching to live delivery.
const defaultBacklogSize = 20

// Stream message types, distinguishing live payloads on the wire.
const (
	MessageTypeEvent     = "event"
	MessageTypeHeartbeat = "heartbeat"
	MessageTypeError     = "error"
)

// StreamMessage is one frame delivered to a stream consumer. Event is
// set for event frames; heartbeats and errors carry only the envelope.
type StreamMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Event     *Event    `json:"event,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// SendFunc delivers one frame to the consumer. A non-nil error
// terminates the stream.
type SendFunc func(StreamMessage) error

// EventStreamer turns the monitor's event log into a live feed: a
// backlog replay followed by periodic polling keyed on sequence
// numbers, with a heartbeat every interval so consumers can detect a
// dead connection.
type EventStreamer struct {
	monitor  *Monitor
	interval time.Duration
	backlog  atomic.Int64
	logger   *zap.Logger
}

// NewEventStreamer creates a streamer over the given monitor.
// A non-positive interval falls back to DefaultPollInterval.
func NewEventStreamer(monitor *Monitor, interval time.Duration, logger *zap.Logger) *EventStreamer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EventStreamer{
		monitor:  monitor,
		interval: interval,
		logger:   logger,
	}
	s.backlog.Store(defaultBacklogSize)
	return s
}

// SetBacklog changes how many recent events new streams replay.
// Values of zero or less are ignored. Streams already running keep
// the backlog they started with.
func (s *EventStreamer) SetBacklog(n int) {
	if n > 0 {
		s.backlog.Store(int64(n))
	}
}

// Stream delivers events to send until ctx is cancelled or send fails.
// It first replays the most recent backlog, then polls for events with
// a sequence number above the last delivered one, emitting a heartbeat
// on every tick. On a send failure it makes a best-effort final error
// frame and returns the failure.
func (s *EventStreamer) Stream(ctx context.Context, send SendFunc) error {
	var lastSeq uint64
	for _, event := range s.monitor.GetRecentEvents(int(s.backlog.Load()), "", "") {
		if err := s.deliver(send, event); err != nil {
			return s.fail(send, err)
		}
		lastSeq = event.Seq
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for _, event := range s.monitor.EventsSince(lastSeq) {
			if err := s.deliver(send, event); err != nil {
				return s.fail(send, err)
			}
			lastSeq = event.Seq
		}

		heartbeat := StreamMessage{Type: MessageTypeHeartbeat, Timestamp: time.Now()}
		if err := send(heartbeat); err != nil {
			return s.fail(send, err)
		}
	}
}

func (s *EventStreamer) deliver(send SendFunc, event Event) error {
	e := event
	return send(StreamMessage{
		Type:      MessageTypeEvent,
		Timestamp: e.Timestamp,
		Event:     &e,
	})
}

// fail sends a terminal error frame, ignoring its own failure since
// the connection is likely already gone.
func (s *EventStreamer) fail(send SendFunc, cause error) error {
	s.logger.Debug("event stream terminating", zap.Error(cause))
	_ = send(StreamMessage{
		Type:      MessageTypeError,
		Timestamp: time.Now(),
		Message:   cause.Error(),
	})
	return cause
}
