// Package transfer moves files and folder trees between the local
// filesystem and a remote session. Folder transfers keep going past
// individual file failures and report per-item errors on the job.
package transfer

import (
	"errors"
	"io"
	"os"
)

// RemoteFS is the slice of the remote session the engine needs.
// remote.Session implements it with unretried calls; the engine wraps
// whole-file operations in its own retry policy.
type RemoteFS interface {
	Stat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.FileInfo, error)
	Mkdir(path string) error
	OpenRead(path string) (io.ReadCloser, error)
	OpenWrite(path string) (io.WriteCloser, error)
}

// ProgressSink receives progress reports. For single-file transfers the
// unit is bytes; for folder transfers it is completed files. Returning
// false cancels the transfer. A nil sink reports nothing and never
// cancels.
type ProgressSink func(done, total int64) bool

// ErrCancelled is returned when a sink or job cancels a transfer.
// Whatever was partially written stays on disk.
var ErrCancelled = errors.New("transfer cancelled")
