package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyPayload is returned when there is nothing to decode.
var ErrEmptyPayload = errors.New("empty payload")

// Response is the envelope the catalog server wraps around a trace. A bare
// JSON array of steps decodes into a Response with only Steps set.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Steps   []Step `json:"steps"`

	// Book is the record a search resolved to, if any.
	Book *Key `json:"book,omitempty"`

	// Books is the result list of a range query.
	Books []Key `json:"books,omitempty"`
}

// Decode parses either a server response object or a bare step array.
func Decode(data []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyPayload
	}

	if trimmed[0] == '[' {
		var steps []Step
		if err := json.Unmarshal(trimmed, &steps); err != nil {
			return nil, fmt.Errorf("parsing step array: %w", err)
		}
		return &Response{Success: true, Steps: steps}, nil
	}

	var resp Response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &resp, nil
}
