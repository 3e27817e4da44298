package groupings

import "fmt"

// CycleError is returned when a grouping is reachable from itself. The
// resolution request fails; the process keeps running.
type CycleError struct {
	Name string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("grouping cycle detected at %q", e.Name)
}

// UnknownError is returned when a requested grouping name does not exist. A
// bad config must be surfaced, not silently skipped.
type UnknownError struct {
	Name string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown grouping %q", e.Name)
}

// EmptyError is returned when a grouping expands to zero airports
type EmptyError struct {
	Name string
}

func (e *EmptyError) Error() string {
	return fmt.Sprintf("grouping %q resolves to zero airports", e.Name)
}
