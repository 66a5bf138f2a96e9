package remote

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by any remote call made before Connect
// succeeds or after Disconnect.
var ErrNotConnected = errors.New("session not connected")

// RemoteIOError is the typed failure every remote call surfaces after
// retry exhaustion. The session is left intact; callers decide whether
// the failure warrants a disconnect.
type RemoteIOError struct {
	Op   string // operation name: "list", "mkdir", "rename", ...
	Path string // remote path the operation targeted
	Err  error  // original cause, unchanged
}

func (e *RemoteIOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s %s failed: %v", e.Op, e.Path, e.Err)
}

func (e *RemoteIOError) Unwrap() error {
	return e.Err
}
