package snowapi

import (
	"bufio"
	"io"
	"strings"
)

// Stream event types.
const (
	EventDelta = "delta"
	EventOther = "event"
	EventDone  = "done"
	EventError = "error"
)

// StreamEvent is one item delivered by StreamAgent.
type StreamEvent struct {
	Type  string `json:"type"`            // delta | event | done | error
	Event string `json:"event,omitempty"` // SSE event name as sent by the platform
	Data  string `json:"data,omitempty"`  // raw data field
	Text  string `json:"text,omitempty"`  // delta text, full text on done, message on error
}

// rawEvent is one dispatched server-sent event.
type rawEvent struct {
	Event string
	Data  string
	ID    string
}

// eventReader reads server-sent events from a stream.
type eventReader struct {
	scanner *bufio.Scanner
	current rawEvent
}

func newEventReader(r io.Reader) *eventReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventReader{scanner: s}
}

// Next advances to the next complete event. Events are dispatched on a blank
// line or at end of stream; an event without data is skipped.
func (r *eventReader) Next() bool {
	var ev rawEvent
	var data []string
	hasData := false

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")
		if line == "" {
			if hasData {
				ev.Data = strings.Join(data, "\n")
				r.current = ev
				return true
			}
			ev = rawEvent{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Event = value
		case "data":
			data = append(data, value)
			hasData = true
		case "id":
			ev.ID = value
		}
	}

	if hasData {
		ev.Data = strings.Join(data, "\n")
		r.current = ev
		return true
	}
	return false
}

// Event returns the last event read by Next.
func (r *eventReader) Event() rawEvent {
	return r.current
}

// Err returns the first non-EOF read error.
func (r *eventReader) Err() error {
	return r.scanner.Err()
}
