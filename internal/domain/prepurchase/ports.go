package prepurchase

import "context"

// ImportResponse is the decoded reply of an accepted import request.
type ImportResponse struct {
	StatusCode int
	// Body is the decoded response object; nil when the body was empty
	Body map[string]any
}

// AssignedID returns the top-level id of the response body, if any
func (r ImportResponse) AssignedID() string {
	id, _ := IDString(r.Body["id"])
	return id
}

// Importer submits a payload to the remote pre-purchase-order import endpoint.
//
// Implementations return an error wrapping ErrCredentialsUnavailable when
// request headers cannot be produced; any other error is a per-submission
// failure.
type Importer interface {
	Import(ctx context.Context, payload Payload) (ImportResponse, error)
}
