// Package audit records what the pipeline did: an in-memory trail embedded
// in the run result, and a durable hash-chained JSONL log whose integrity
// can be verified after the fact. The trail exists because finance wanted
// to know exactly what data went in, what came out, and proof that nothing
// was modified in between.
package audit

import "time"

// Entry is one audit event within a run.
// All fields are scalars to guarantee deterministic json.Marshal field
// order for reproducible hashing.
type Entry struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`
	Event     string `json:"event"`
	Detail    string `json:"detail"`
	PrevHash  string `json:"prev_hash,omitempty"`
}

// Trail is the append-only audit narration for a single run. It is an
// explicit value threaded through the orchestrator, not ambient state, so
// concurrent runs never share it.
type Trail struct {
	entries []Entry
}

// Append records an event with the current UTC timestamp.
func (t *Trail) Append(event, detail string) Entry {
	e := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Event:     event,
		Detail:    detail,
	}
	t.entries = append(t.entries, e)
	return e
}

// Entries returns the recorded events in append order.
func (t *Trail) Entries() []Entry {
	return t.entries
}
