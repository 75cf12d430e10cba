package database

import "fmt"

// StoreError reports a failed statement or transaction against the epg table.
type StoreError struct {
	Op      string
	Channel string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s failed for channel '%s': %v", e.Op, e.Channel, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
