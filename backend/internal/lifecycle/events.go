package lifecycle

import "time"

// EventType enumerates everything that can happen to a live session
type EventType int

const (
	// EventConnect opens a session for a user
	EventConnect EventType = iota
	// EventTranscript delivers one speech-to-text segment
	EventTranscript
	// EventDisconnect closes the session, persisting the graph
	EventDisconnect
	// EventQuery runs a consultant question serialized with the user's
	// live event stream
	EventQuery
	// EventAdvice runs a one-shot wingman request serialized with the
	// user's live event stream
	EventAdvice
)

// String returns the event name for logging
func (t EventType) String() string {
	switch t {
	case EventConnect:
		return "connect"
	case EventTranscript:
		return "transcript"
	case EventDisconnect:
		return "disconnect"
	case EventQuery:
		return "query"
	case EventAdvice:
		return "advice"
	default:
		return "unknown"
	}
}

// Event is one unit of work on a user's ordered event stream
type Event struct {
	Type    EventType
	UserID  string
	Speaker int    // transcript: diarization speaker index, 0 = primary user
	Text    string // transcript segment, consultant question or one-shot transcript
	IsFinal bool   // transcript: interim segments are dropped

	// Reply receives the answer for EventQuery and EventAdvice
	Reply chan string
}

// Outbound is a payload pushed to the realtime client
type Outbound struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Speaker   string `json:"speaker,omitempty"`
	IsFinal   bool   `json:"is_final,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// newAdvicePayload builds an assistant_response payload
func newAdvicePayload(advice string) Outbound {
	return Outbound{
		Type:      "assistant_response",
		Text:      advice,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// newTranscriptPayload echoes a final transcript segment to the client
func newTranscriptPayload(role, text string) Outbound {
	return Outbound{
		Type:    "transcript",
		Text:    text,
		Speaker: role,
		IsFinal: true,
	}
}
