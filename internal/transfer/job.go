package transfer

import (
	"fmt"
	"sync/atomic"
)

// Direction of a transfer relative to the local machine.
type Direction int

const (
	Upload Direction = iota
	Download
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// ItemError records one failed file inside a folder transfer.
type ItemError struct {
	Path string
	Err  error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Job tracks one folder transfer. It is created by the engine, mutated
// only by the goroutine running the transfer, and safe to read after
// the transfer returns. Cancel may be called from any goroutine.
type Job struct {
	Source    string
	Dest      string
	Direction Direction

	TotalItems     int
	CompletedItems int

	// Failures in encounter order. Never raised as the job error
	// unless every item failed at the root.
	Failures []ItemError

	cancelled atomic.Bool
}

// Cancel requests cooperative cancellation. The running transfer checks
// the flag once per file; the in-flight file finishes or fails first.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
}

// Cancelled reports whether the job was cancelled.
func (j *Job) Cancelled() bool {
	return j.cancelled.Load()
}

// Partial reports whether the job finished with some items failed or
// skipped by cancellation.
func (j *Job) Partial() bool {
	return len(j.Failures) > 0 || j.Cancelled()
}

func (j *Job) recordFailure(path string, err error) {
	j.Failures = append(j.Failures, ItemError{Path: path, Err: err})
}
