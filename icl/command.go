// Package icl implements the transport and correlation layer used to talk
// to the Instrument Control Layer (ICL): a vendor bridge process exposing a
// WebSocket endpoint that carries JSON request/response pairs alongside
// tagged binary telemetry frames.
package icl

import (
	"encoding/json"
	"sync/atomic"
)

// idCounter assigns process-unique, monotonically increasing command
// identifiers starting at 1. Shared across every Command constructed in
// the process, regardless of which Transport eventually sends it.
var idCounter atomic.Int64

// nextCommandID returns the next identifier in the sequence. It never
// repeats within a process.
func nextCommandID() int64 {
	return idCounter.Add(1)
}

// Command is a single request sent to the ICL over the control plane.
type Command struct {
	ID         int64          `json:"id"`
	Name       string         `json:"command"`
	Parameters map[string]any `json:"parameters"`
}

// NewCommand builds a Command with the next process-unique ID. parameters
// may be nil, in which case an empty object is sent on the wire.
func NewCommand(name string, parameters map[string]any) *Command {
	if parameters == nil {
		parameters = map[string]any{}
	}
	return &Command{
		ID:         nextCommandID(),
		Name:       name,
		Parameters: parameters,
	}
}

// Response is the ICL's reply to a Command, matched by ID.
type Response struct {
	ID      int64          `json:"id"`
	Command string         `json:"command"`
	Results map[string]any `json:"results"`
	Errors  []string       `json:"errors"`
}

// OK reports whether the response carries no ICL-side errors.
func (r *Response) OK() bool {
	return len(r.Errors) == 0
}

// parseResponse decodes a single JSON text frame from the ICL. Malformed
// JSON is the caller's concern to log and drop; parseResponse only reports
// the decode error.
func parseResponse(data []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Results == nil {
		r.Results = map[string]any{}
	}
	return &r, nil
}
