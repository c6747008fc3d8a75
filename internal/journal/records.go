package journal

import "fmt"

// Application outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
)

// Call outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Application records one behavior set application to one target: which
// members were installed, which the target already owned (silent
// first-definition-wins), and whether the application succeeded. Failed
// applications record the error text and install nothing.
type Application struct {
	ID        string
	Scenario  string
	Behavior  string
	Tag       string
	Target    string
	Installed []string
	Skipped   []string
	Outcome   string
	Error     string
	Seq       int64
}

// Call records one method invocation through object dispatch. Target is
// the receiver's label, or "<no-receiver>" for receiver-less calls. Args
// and Result hold canonical JSON; Result is empty when the call errored.
type Call struct {
	ID        string
	Scenario  string
	Target    string
	Operation string
	Args      string
	Result    string
	Outcome   string
	Error     string
	Seq       int64
}

// Execution records a probe observation: the named operation's body
// actually ran, on the given receiver, during the given call. Suppressed
// calls have no execution rows.
type Execution struct {
	ID        int64
	CallID    string
	Operation string
	Receiver  string
	Seq       int64
}

// Event is one journal entry in the merged timeline view.
type Event struct {
	Kind    string `json:"kind"` // "application", "call", or "execution"
	Seq     int64  `json:"seq"`
	Name    string `json:"name"`   // behavior label or operation name
	Target  string `json:"target"` // target or receiver label
	Outcome string `json:"outcome,omitempty"`
}

// String renders the compact trace form used by golden traces:
//
//	apply:Coloured->x
//	call:setColourRGB@x
//	exec:setColourRGB@x
//
// Failed applications and calls render as apply-failed: and call-failed:.
func (e Event) String() string {
	switch e.Kind {
	case "application":
		if e.Outcome == OutcomeFailed {
			return fmt.Sprintf("apply-failed:%s->%s", e.Name, e.Target)
		}
		return fmt.Sprintf("apply:%s->%s", e.Name, e.Target)
	case "call":
		if e.Outcome == OutcomeError {
			return fmt.Sprintf("call-failed:%s@%s", e.Name, e.Target)
		}
		return fmt.Sprintf("call:%s@%s", e.Name, e.Target)
	case "execution":
		return fmt.Sprintf("exec:%s@%s", e.Name, e.Target)
	default:
		return fmt.Sprintf("%s:%s@%s", e.Kind, e.Name, e.Target)
	}
}
