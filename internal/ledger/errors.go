package ledger

import "fmt"

// SubmissionError wraps a failed execution submission: the node rejected the
// transaction or was unreachable at submit time. The transition that caused
// the submission is simply not applied and is retried on the next tick.
type SubmissionError struct {
	Function string
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("ledger: submit %s: %v", e.Function, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// QueryError wraps a mapping lookup that failed for a reason other than the
// key being absent. Absent keys are reported as domain.ErrNotFound, which is
// a normal outcome for markets not yet created on-chain.
type QueryError struct {
	Mapping string
	Key     string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("ledger: query %s[%s]: %v", e.Mapping, e.Key, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
