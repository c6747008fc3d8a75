package harness

import (
	"github.com/mikhailrojo/javascript-allonge-six/internal/journal"
	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the full journal timeline in sequence order:
	// applications, calls, and executions interleaved.
	Trace []journal.Event `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds each object's final own enumerable fields, keyed by the
	// object's scenario name. Installed operations are non-enumerable and
	// never appear here.
	State map[string]object.Record `json:"state,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []journal.Event{},
		Errors: []string{},
		State:  make(map[string]object.Record),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
