package prepurchase

// StateKeyError is the state-update key carrying a failure description
const StateKeyError = "error"

// SubmissionResult is the outcome of one submission attempt.
type SubmissionResult struct {
	// ID is the assigned or correlated id; empty when absent
	ID      string
	Success bool
	// State holds the state updates to merge into pipeline state
	State map[string]any
	// Items is the number of items in the submitted payload
	Items int
}

// HasID reports whether an id was assigned or correlated
func (r SubmissionResult) HasID() bool {
	return r.ID != ""
}

// Error returns the recorded failure description, if any
func (r SubmissionResult) Error() string {
	if s, ok := r.State[StateKeyError].(string); ok {
		return s
	}
	return ""
}

// Succeeded builds the result of an accepted submission
func Succeeded(id string, items int) SubmissionResult {
	return SubmissionResult{ID: id, Success: true, State: map[string]any{}, Items: items}
}

// Failed builds the result of a rejected or failed submission
func Failed(err error, items int) SubmissionResult {
	msg := "submission failed"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return SubmissionResult{
		Success: false,
		State:   map[string]any{StateKeyError: msg},
		Items:   items,
	}
}
