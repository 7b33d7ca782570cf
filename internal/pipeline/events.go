package pipeline

import (
	"encoding/json"
	"fmt"
)

// Wire names of the three stages.
const (
	StageResearching = "researching"
	StageAnalysing   = "analysing"
	StageWriting     = "writing"
)

// Event names on the wire.
const (
	EventStage  = "stage"
	EventResult = "result"
	EventError  = "error"
	EventDone   = "done"
)

// Event is one notification in the per-request stream. Events are produced by
// the orchestrator in stage-transition order and handed to the transport for
// serialization; they are never persisted.
type Event struct {
	Name string
	Data any
}

// StagePayload is the body of a stage progress event.
type StagePayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Done    bool   `json:"done,omitempty"`
}

// ErrorPayload is the body of the terminal error event, letting callers
// distinguish a pipeline failure from a dropped connection.
type ErrorPayload struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func stageEvent(stage, message string, done bool) Event {
	return Event{Name: EventStage, Data: StagePayload{Stage: stage, Message: message, Done: done}}
}

func resultEvent(report FinalReport) Event {
	return Event{Name: EventResult, Data: report}
}

func errorEvent(err error) Event {
	return Event{Name: EventError, Data: ErrorPayload{Kind: KindOf(err), Message: err.Error()}}
}

func doneEvent() Event {
	return Event{Name: EventDone, Data: struct{}{}}
}

// Encode serializes the event in SSE wire format:
// "event: <name>\ndata: <json>\n\n".
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("encode event %q: %w", e.Name, err)
	}
	return []byte("event: " + e.Name + "\ndata: " + string(data) + "\n\n"), nil
}
