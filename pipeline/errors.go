package pipeline

import (
	"errors"
	"fmt"
)

// FailureMessage is what GetAnswerFromWeb returns for every failure.
const FailureMessage = "Error fetching results"

var (
	// ErrSearchUnavailable is returned when the search step yields no usable records
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrFetchFailed is returned when the top ranked page cannot be retrieved
	ErrFetchFailed = errors.New("fetch failed")
)

// Error carries the step that failed and the query and URL involved.
type Error struct {
	Kind  error
	Query string
	URL   string
	Err   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v for query '%s'", e.Kind, e.Query)
	if e.URL != "" {
		msg += fmt.Sprintf(" at '%s'", e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newSearchError(query string, err error) *Error {
	return &Error{Kind: ErrSearchUnavailable, Query: query, Err: err}
}

func newFetchError(query, url string, err error) *Error {
	return &Error{Kind: ErrFetchFailed, Query: query, URL: url, Err: err}
}
