package model

import "fmt"

// MalformedDataError reports a raw recording whose mandatory fields are
// missing or cannot be parsed.
type MalformedDataError struct {
	Field  string
	Reason string
	Err    error
}

func (e *MalformedDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed recording data: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed recording data: %s: %s", e.Field, e.Reason)
}

func (e *MalformedDataError) Unwrap() error {
	return e.Err
}
