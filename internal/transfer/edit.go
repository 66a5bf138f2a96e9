package transfer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sftpdeck/sftpdeck/internal/constants"
)

// EditSession is a remote file checked out to a local scratch copy so
// an external editor can work on it. Saves are detected by rehashing
// the copy and pushed back with SyncBack or the Watch loop; Close
// removes the scratch directory.
type EditSession struct {
	RemotePath string
	LocalPath  string

	engine   *Engine
	scratch  string
	lastHash [sha256.Size]byte
}

// OpenForEdit downloads remotePath into a fresh scratch directory and
// returns the session tracking the copy. The scratch directory keeps
// the remote base name so editors show something recognizable.
func (e *Engine) OpenForEdit(ctx context.Context, remotePath string) (*EditSession, error) {
	scratch, err := os.MkdirTemp("", constants.AppName+"-edit-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	local := filepath.Join(scratch, path.Base(remotePath))
	if err := e.DownloadFile(ctx, remotePath, local, nil); err != nil {
		os.RemoveAll(scratch)
		return nil, err
	}

	sum, err := hashFile(local)
	if err != nil {
		os.RemoveAll(scratch)
		return nil, fmt.Errorf("failed to hash scratch copy: %w", err)
	}

	return &EditSession{
		RemotePath: remotePath,
		LocalPath:  local,
		engine:     e,
		scratch:    scratch,
		lastHash:   sum,
	}, nil
}

// Modified reports whether the scratch copy changed since the last
// sync.
func (s *EditSession) Modified() (bool, error) {
	sum, err := hashFile(s.LocalPath)
	if err != nil {
		return false, err
	}
	return sum != s.lastHash, nil
}

// SyncBack uploads the scratch copy when it changed and reports
// whether an upload happened. An unchanged copy is never re-uploaded.
func (s *EditSession) SyncBack(ctx context.Context) (bool, error) {
	sum, err := hashFile(s.LocalPath)
	if err != nil {
		return false, err
	}
	if sum == s.lastHash {
		return false, nil
	}
	if err := s.engine.UploadFile(ctx, s.LocalPath, s.RemotePath, nil); err != nil {
		return false, err
	}
	s.lastHash = sum
	return true, nil
}

// Watch polls the scratch copy and pushes every detected save back to
// the remote until ctx is cancelled. Each push is reported to onSync;
// a failed push is reported and polling continues, so a flaky link
// does not swallow later saves. interval <= 0 selects the default.
func (s *EditSession) Watch(ctx context.Context, interval time.Duration, onSync func(error)) {
	if interval <= 0 {
		interval = constants.EditPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			synced, err := s.SyncBack(ctx)
			if err != nil {
				s.engine.logger.Error().Err(err).Str("path", s.RemotePath).Msg("Edit sync failed")
				if onSync != nil {
					onSync(err)
				}
				continue
			}
			if synced {
				s.engine.logger.Debug().Str("path", s.RemotePath).Msg("Edited file pushed to remote")
				if onSync != nil {
					onSync(nil)
				}
			}
		}
	}
}

// Close removes the scratch directory and the copy inside it.
func (s *EditSession) Close() error {
	return os.RemoveAll(s.scratch)
}

func hashFile(p string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte
	f, err := os.Open(p)
	if err != nil {
		return sum, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
