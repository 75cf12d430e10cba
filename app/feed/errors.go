package feed

import "fmt"

// FetchError reports a failed retrieval of one feed payload.
type FetchError struct {
	Key Key
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s from %s: %v", e.Key, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a payload that could not be decoded.
type ParseError struct {
	Key     Key
	Channel string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s for channel '%s': %v", e.Key, e.Channel, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
