package reconcile

import (
	"encoding/json"
)

// Operation names the action an invocation took.
type Operation string

const (
	// OperationNone means the destination was left alone.
	OperationNone Operation = "none"

	// OperationCloned means the repository was cloned into an absent destination.
	OperationCloned Operation = "cloned"

	// OperationUpdated means an existing checkout was switched to the branch
	// and pulled. The revision may or may not have moved.
	OperationUpdated Operation = "updated"

	// OperationReplacedAndCloned means a non-checkout destination was removed
	// and the repository cloned in its place.
	OperationReplacedAndCloned Operation = "replacedAndCloned"
)

// Result is the outcome of one invocation.
type Result struct {
	Changed        bool
	BeforeRevision Revision
	AfterRevision  Revision
	Operation      Operation

	// CheckMode is set when the result describes what would have happened.
	CheckMode bool
}

type resultJSON struct {
	Changed   bool      `json:"changed"`
	Before    *string   `json:"before"`
	After     *string   `json:"after"`
	Operation Operation `json:"operation"`
	CheckMode bool      `json:"check_mode,omitempty"`
}

// MarshalJSON renders absent revisions as null.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Changed:   r.Changed,
		Before:    revisionPtr(r.BeforeRevision),
		After:     revisionPtr(r.AfterRevision),
		Operation: r.Operation,
		CheckMode: r.CheckMode,
	})
}

// UnmarshalJSON accepts the form produced by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Result{
		Changed:   raw.Changed,
		Operation: raw.Operation,
		CheckMode: raw.CheckMode,
	}
	if raw.Before != nil {
		r.BeforeRevision = Revision(*raw.Before)
	}
	if raw.After != nil {
		r.AfterRevision = Revision(*raw.After)
	}
	return nil
}

func revisionPtr(rev Revision) *string {
	if rev.IsZero() {
		return nil
	}
	s := string(rev)
	return &s
}
