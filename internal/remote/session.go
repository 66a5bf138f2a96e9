// Package remote implements the single-connection SFTP session: navigation
// with history, directory listings, and the mutating operations the file
// browser needs, all built on the bounded-retry wrapper.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/sftpdeck/sftpdeck/internal/events"
	"github.com/sftpdeck/sftpdeck/internal/logging"
	"github.com/sftpdeck/sftpdeck/internal/retry"
)

// sftpConn is the slice of *sftp.Client the session depends on.
// Narrowed to an interface so tests can drive the session without a server.
type sftpConn interface {
	RealPath(path string) (string, error)
	ReadDir(path string) ([]os.FileInfo, error)
	Stat(path string) (os.FileInfo, error)
	Mkdir(path string) error
	Remove(path string) error
	RemoveDirectory(path string) error
	Rename(oldname, newname string) error
	OpenRead(path string) (io.ReadCloser, error)
	OpenWrite(path string) (io.WriteCloser, error)
	Close() error
}

// sftpAdapter wraps *sftp.Client to satisfy sftpConn.
type sftpAdapter struct {
	c *sftp.Client
}

func (a sftpAdapter) RealPath(p string) (string, error)        { return a.c.RealPath(p) }
func (a sftpAdapter) ReadDir(p string) ([]os.FileInfo, error)  { return a.c.ReadDir(p) }
func (a sftpAdapter) Stat(p string) (os.FileInfo, error)       { return a.c.Stat(p) }
func (a sftpAdapter) Mkdir(p string) error                     { return a.c.Mkdir(p) }
func (a sftpAdapter) Remove(p string) error                    { return a.c.Remove(p) }
func (a sftpAdapter) RemoveDirectory(p string) error           { return a.c.RemoveDirectory(p) }
func (a sftpAdapter) Rename(oldname, newname string) error     { return a.c.Rename(oldname, newname) }
func (a sftpAdapter) OpenRead(p string) (io.ReadCloser, error) { return a.c.Open(p) }
func (a sftpAdapter) OpenWrite(p string) (io.WriteCloser, error) {
	return a.c.Create(p)
}
func (a sftpAdapter) Close() error { return a.c.Close() }

// Session owns one SSH transport and its SFTP channel. All remote calls
// on a session are serialized: the underlying channel is not safe for
// concurrent use. One session per window; never share a singleton.
type Session struct {
	mu sync.Mutex

	ssh  *ssh.Client
	sftp sftpConn

	currentPath string
	history     []string

	retryCfg retry.Config
	logger   *logging.Logger
	bus      *events.EventBus
}

// NewSession creates a disconnected session. The bus may be nil when no
// presentation layer is listening.
func NewSession(logger *logging.Logger, bus *events.EventBus) *Session {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return &Session{
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
		bus:      bus,
	}
}

// SetRetryConfig overrides the retry policy for subsequent calls.
func (s *Session) SetRetryConfig(cfg retry.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryCfg = cfg
}

// Connect establishes the SSH transport and SFTP channel. Connection
// failures are surfaced immediately, never retried; the session stays
// disconnected.
func (s *Session) Connect(host string, port int, user, password string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sftp != nil {
		return fmt.Errorf("session already connected to %s", s.ssh.RemoteAddr())
	}

	cfg := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
		},
		// Host keys are accepted on first use. Saved-connection pinning
		// lives in the presentation layer's known-hosts handling.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to open sftp channel on %s: %w", addr, err)
	}

	s.ssh = client
	s.sftp = sftpAdapter{c: sftpClient}
	s.history = nil

	// Resolve the login directory; fall back to "/" if the server
	// refuses, so navigation still has an anchor.
	cwd, err := sftpClient.RealPath(".")
	if err != nil {
		cwd = "/"
	}
	s.currentPath = cwd

	s.logger.Info().Str("addr", addr).Str("cwd", cwd).Msg("Connected")
	return nil
}

// Disconnect closes the SFTP channel and SSH transport.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sftp != nil {
		_ = s.sftp.Close()
		s.sftp = nil
	}
	if s.ssh != nil {
		_ = s.ssh.Close()
		s.ssh = nil
	}
	s.history = nil
	s.currentPath = ""

	if s.bus != nil {
		s.bus.Publish(&events.BaseEvent{EventType: events.EventDisconnected, Time: time.Now()})
	}
}

// IsConnected reports whether the SFTP channel is open.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sftp != nil
}

// CurrentPath returns the canonical remote working directory.
func (s *Session) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPath
}

// resolve turns a caller-supplied path into an absolute remote path.
// Absolute paths are used verbatim; relative ones are joined onto the
// current directory. Remote paths are always POSIX style.
func (s *Session) resolve(p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Join(s.currentPath, p)
}

// List refreshes and returns the listing for dir, or for the current
// directory when dir is empty. On success the session's working directory
// is updated to the remote's canonical resolution of the target: the
// remote is authoritative, never the caller-supplied string.
// Entries come back directories-first, case-insensitive within groups.
func (s *Session) List(ctx context.Context, dir string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sftp == nil {
		return nil, ErrNotConnected
	}

	target := s.currentPath
	if dir != "" {
		target = s.resolve(dir)
	}

	canonical, err := retry.DoWithResult(ctx, s.retryCfg, func() (string, error) {
		return s.sftp.RealPath(target)
	})
	if err != nil {
		return nil, &RemoteIOError{Op: "list", Path: target, Err: err}
	}

	infos, err := retry.DoWithResult(ctx, s.retryCfg, func() ([]os.FileInfo, error) {
		return s.sftp.ReadDir(canonical)
	})
	if err != nil {
		return nil, &RemoteIOError{Op: "list", Path: canonical, Err: err}
	}

	s.currentPath = canonical

	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, Entry{
			Name:    fi.Name(),
			Size:    uint64(fi.Size()),
			IsDir:   fi.IsDir(),
			Mode:    uint32(fi.Mode()),
			ModTime: fi.ModTime(),
		})
	}
	SortEntries(entries)

	if s.bus != nil {
		s.bus.PublishDirectoryChanged(canonical)
	}
	return entries, nil
}

// ChangeDirectory navigates to dir, pushing the current directory onto
// the history stack first.
func (s *Session) ChangeDirectory(ctx context.Context, dir string) ([]Entry, error) {
	s.mu.Lock()
	if s.sftp == nil {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	s.history = append(s.history, s.currentPath)
	s.mu.Unlock()

	return s.List(ctx, dir)
}

// GoBack pops the history stack and navigates to the previous directory.
// Returns false without touching the session when the history is empty.
func (s *Session) GoBack(ctx context.Context) ([]Entry, bool, error) {
	s.mu.Lock()
	if s.sftp == nil {
		s.mu.Unlock()
		return nil, false, ErrNotConnected
	}
	if len(s.history) == 0 {
		s.mu.Unlock()
		return nil, false, nil
	}
	prev := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.mu.Unlock()

	entries, err := s.List(ctx, prev)
	return entries, true, err
}

// GoUp navigates to the parent directory. A no-op at the filesystem
// root, where the parent equals the directory itself: no history push,
// no remote call.
func (s *Session) GoUp(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	if s.sftp == nil {
		s.mu.Unlock()
		return nil, ErrNotConnected
	}
	parent := path.Dir(s.currentPath)
	if parent == s.currentPath {
		s.mu.Unlock()
		return nil, nil
	}
	s.mu.Unlock()

	return s.ChangeDirectory(ctx, parent)
}

// HistoryDepth returns the number of directories on the back stack.
func (s *Session) HistoryDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Delete removes the named file, or the named directory if it is empty.
// Non-empty directory deletion surfaces the remote's error; there is no
// pre-check and no recursion.
func (s *Session) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sftp == nil {
		return ErrNotConnected
	}
	target := s.resolve(name)

	err := retry.Do(ctx, s.retryCfg, func() error {
		fi, err := s.sftp.Stat(target)
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return s.sftp.RemoveDirectory(target)
		}
		return s.sftp.Remove(target)
	})
	if err != nil {
		return &RemoteIOError{Op: "delete", Path: target, Err: err}
	}
	return nil
}

// Rename renames a file or directory within the current directory tree.
func (s *Session) Rename(ctx context.Context, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sftp == nil {
		return ErrNotConnected
	}
	oldPath := s.resolve(oldName)
	newPath := s.resolve(newName)

	err := retry.Do(ctx, s.retryCfg, func() error {
		return s.sftp.Rename(oldPath, newPath)
	})
	if err != nil {
		return &RemoteIOError{Op: "rename", Path: oldPath, Err: err}
	}
	return nil
}

// MakeDir creates a directory.
func (s *Session) MakeDir(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sftp == nil {
		return ErrNotConnected
	}
	target := s.resolve(name)

	err := retry.Do(ctx, s.retryCfg, func() error {
		return s.sftp.Mkdir(target)
	})
	if err != nil {
		return &RemoteIOError{Op: "mkdir", Path: target, Err: err}
	}
	return nil
}

// CreateFile creates an empty file, truncating any existing content.
func (s *Session) CreateFile(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sftp == nil {
		return ErrNotConnected
	}
	target := s.resolve(name)

	err := retry.Do(ctx, s.retryCfg, func() error {
		f, err := s.sftp.OpenWrite(target)
		if err != nil {
			return err
		}
		return f.Close()
	})
	if err != nil {
		return &RemoteIOError{Op: "create", Path: target, Err: err}
	}
	return nil
}

// Stat returns file info for a remote path without retry wrapping.
// Used by the transfer engine, which applies its own retry policy.
func (s *Session) Stat(p string) (os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sftp == nil {
		return nil, ErrNotConnected
	}
	return s.sftp.Stat(p)
}

// ReadDir returns the raw directory listing for the transfer engine.
func (s *Session) ReadDir(p string) ([]os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sftp == nil {
		return nil, ErrNotConnected
	}
	return s.sftp.ReadDir(p)
}

// Mkdir creates a remote directory for the transfer engine.
func (s *Session) Mkdir(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sftp == nil {
		return ErrNotConnected
	}
	return s.sftp.Mkdir(p)
}

// OpenRead opens a remote file for reading (download path).
func (s *Session) OpenRead(p string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sftp == nil {
		return nil, ErrNotConnected
	}
	return s.sftp.OpenRead(p)
}

// OpenWrite opens a remote file for writing, truncating it (upload path).
func (s *Session) OpenWrite(p string) (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sftp == nil {
		return nil, ErrNotConnected
	}
	return s.sftp.OpenWrite(p)
}

// Exec runs a command on the remote host over a fresh SSH channel and
// returns stdout, stderr, and the exit code. This is the opaque sink the
// command-shortcut feature writes through; the session does not inspect
// the command.
func (s *Session) Exec(command string) (string, string, int, error) {
	s.mu.Lock()
	client := s.ssh
	s.mu.Unlock()

	if client == nil {
		return "", "", -1, ErrNotConnected
	}

	sess, err := client.NewSession()
	if err != nil {
		return "", "", -1, fmt.Errorf("failed to open exec channel: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	exitCode := 0
	if err := sess.Run(command); err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitStatus()
		} else {
			return stdout.String(), stderr.String(), -1, fmt.Errorf("exec failed: %w", err)
		}
	}

	return stdout.String(), stderr.String(), exitCode, nil
}
