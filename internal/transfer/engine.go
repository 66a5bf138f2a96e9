package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/sftpdeck/sftpdeck/internal/constants"
	"github.com/sftpdeck/sftpdeck/internal/events"
	"github.com/sftpdeck/sftpdeck/internal/logging"
	"github.com/sftpdeck/sftpdeck/internal/retry"
)

// Engine moves files between the local filesystem and a RemoteFS.
// Whole-file operations are retried; chunk-level errors restart the
// file, not the chunk.
type Engine struct {
	fs       RemoteFS
	retryCfg retry.Config
	logger   *logging.Logger
	bus      *events.EventBus
	chunk    int
}

// NewEngine creates a transfer engine over the given remote filesystem.
// The bus may be nil.
func NewEngine(fs RemoteFS, logger *logging.Logger, bus *events.EventBus) *Engine {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	cfg := retry.DefaultConfig()
	cfg.Retryable = func(err error) bool {
		// A cancelled transfer is a decision, not a fault.
		return !errors.Is(err, ErrCancelled) && !errors.Is(err, context.Canceled)
	}
	return &Engine{
		fs:       fs,
		retryCfg: cfg,
		logger:   logger,
		bus:      bus,
		chunk:    constants.TransferChunkSize,
	}
}

// SetRetryConfig overrides the per-file retry policy.
func (e *Engine) SetRetryConfig(cfg retry.Config) {
	e.retryCfg = cfg
}

// UploadFile copies one local file to remotePath. The sink receives
// (bytes, total) after every chunk; returning false aborts and leaves
// the partial remote file in place.
func (e *Engine) UploadFile(ctx context.Context, localPath, remotePath string, sink ProgressSink) error {
	err := retry.Do(ctx, e.retryCfg, func() error {
		return e.uploadOnce(localPath, remotePath, sink)
	})
	e.publishFileResult(Upload, localPath, remotePath, err)
	return err
}

func (e *Engine) uploadOnce(localPath, remotePath string, sink ProgressSink) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer src.Close()

	fi, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat local file: %w", err)
	}

	dst, err := e.fs.OpenWrite(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file: %w", err)
	}
	defer dst.Close()

	return e.copyChunks(dst, src, fi.Size(), sink)
}

// DownloadFile copies one remote file to localPath. Progress and
// cancellation behave as in UploadFile.
func (e *Engine) DownloadFile(ctx context.Context, remotePath, localPath string, sink ProgressSink) error {
	err := retry.Do(ctx, e.retryCfg, func() error {
		return e.downloadOnce(remotePath, localPath, sink)
	})
	e.publishFileResult(Download, remotePath, localPath, err)
	return err
}

func (e *Engine) downloadOnce(remotePath, localPath string, sink ProgressSink) error {
	fi, err := e.fs.Stat(remotePath)
	if err != nil {
		return fmt.Errorf("failed to stat remote file: %w", err)
	}

	src, err := e.fs.OpenRead(remotePath)
	if err != nil {
		return fmt.Errorf("failed to open remote file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer dst.Close()

	return e.copyChunks(dst, src, fi.Size(), sink)
}

// copyChunks copies src to dst in fixed-size chunks, reporting running
// byte counts to the sink after each chunk.
func (e *Engine) copyChunks(dst io.Writer, src io.Reader, total int64, sink ProgressSink) error {
	buf := make([]byte, e.chunk)
	var done int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return fmt.Errorf("write failed after %d bytes: %w", done, err)
			}
			done += int64(n)
			if sink != nil && !sink(done, total) {
				return ErrCancelled
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read failed after %d bytes: %w", done, readErr)
		}
	}
}

// UploadFolder recursively copies localDir into remoteDir. Individual
// file failures are recorded on the job and siblings continue; the
// returned error is non-nil only when the whole job fails (source
// unreadable or destination root uncreatable). The sink receives
// (completedFiles, totalFiles) after each file.
func (e *Engine) UploadFolder(ctx context.Context, localDir, remoteDir string, sink ProgressSink) (*Job, error) {
	job := &Job{Source: localDir, Dest: remoteDir, Direction: Upload}

	total, err := countLocalFiles(localDir)
	if err != nil {
		e.publishJobResult(job, err)
		return job, fmt.Errorf("failed to scan %s: %w", localDir, err)
	}
	job.TotalItems = total

	if total == 0 {
		// Nothing to copy; mirror the empty directory and finish
		// without a single progress report.
		if err := e.ensureRemoteDir(remoteDir); err != nil {
			e.publishJobResult(job, err)
			return job, err
		}
		e.publishJobResult(job, nil)
		return job, nil
	}

	if err := e.uploadTree(ctx, localDir, remoteDir, job, sink); err != nil {
		e.publishJobResult(job, err)
		return job, err
	}
	e.publishJobResult(job, nil)
	return job, nil
}

func (e *Engine) uploadTree(ctx context.Context, localDir, remoteDir string, job *Job, sink ProgressSink) error {
	if err := e.ensureRemoteDir(remoteDir); err != nil {
		return err
	}

	entries, err := os.ReadDir(localDir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localDir, err)
	}

	for _, entry := range entries {
		if job.Cancelled() || ctx.Err() != nil {
			job.Cancel()
			return nil
		}

		localPath := filepath.Join(localDir, entry.Name())
		remotePath := path.Join(remoteDir, entry.Name())

		if entry.IsDir() {
			// A failed subtree is recorded once, under its root.
			if err := e.uploadTree(ctx, localPath, remotePath, job, sink); err != nil {
				job.recordFailure(localPath, err)
				e.logger.Error().Err(err).Str("path", localPath).Msg("Subfolder upload failed")
			}
			continue
		}

		err := retry.Do(ctx, e.retryCfg, func() error {
			return e.uploadOnce(localPath, remotePath, nil)
		})
		if err != nil {
			job.recordFailure(localPath, err)
			e.logger.Error().Err(err).Str("path", localPath).Msg("File upload failed")
			continue
		}

		job.CompletedItems++
		e.reportJobProgress(job, sink)
	}
	return nil
}

// DownloadFolder recursively copies remoteDir into localDir, with the
// same partial-failure semantics as UploadFolder.
func (e *Engine) DownloadFolder(ctx context.Context, remoteDir, localDir string, sink ProgressSink) (*Job, error) {
	job := &Job{Source: remoteDir, Dest: localDir, Direction: Download}

	total, err := e.countRemoteFiles(remoteDir)
	if err != nil {
		e.publishJobResult(job, err)
		return job, fmt.Errorf("failed to scan %s: %w", remoteDir, err)
	}
	job.TotalItems = total

	if total == 0 {
		if err := os.MkdirAll(localDir, 0755); err != nil {
			e.publishJobResult(job, err)
			return job, fmt.Errorf("failed to create %s: %w", localDir, err)
		}
		e.publishJobResult(job, nil)
		return job, nil
	}

	if err := e.downloadTree(ctx, remoteDir, localDir, job, sink); err != nil {
		e.publishJobResult(job, err)
		return job, err
	}
	e.publishJobResult(job, nil)
	return job, nil
}

func (e *Engine) downloadTree(ctx context.Context, remoteDir, localDir string, job *Job, sink ProgressSink) error {
	if err := os.MkdirAll(localDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", localDir, err)
	}

	infos, err := e.fs.ReadDir(remoteDir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", remoteDir, err)
	}

	for _, fi := range infos {
		if job.Cancelled() || ctx.Err() != nil {
			job.Cancel()
			return nil
		}

		remotePath := path.Join(remoteDir, fi.Name())
		localPath := filepath.Join(localDir, fi.Name())

		if fi.IsDir() {
			if err := e.downloadTree(ctx, remotePath, localPath, job, sink); err != nil {
				job.recordFailure(remotePath, err)
				e.logger.Error().Err(err).Str("path", remotePath).Msg("Subfolder download failed")
			}
			continue
		}

		err := retry.Do(ctx, e.retryCfg, func() error {
			return e.downloadOnce(remotePath, localPath, nil)
		})
		if err != nil {
			job.recordFailure(remotePath, err)
			e.logger.Error().Err(err).Str("path", remotePath).Msg("File download failed")
			continue
		}

		job.CompletedItems++
		e.reportJobProgress(job, sink)
	}
	return nil
}

// ensureRemoteDir creates dir if a stat probe does not find it. The
// probe error is control flow: any stat failure falls through to mkdir,
// and only the mkdir error is authoritative.
func (e *Engine) ensureRemoteDir(dir string) error {
	if fi, err := e.fs.Stat(dir); err == nil {
		if !fi.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}
	if err := e.fs.Mkdir(dir); err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", dir, err)
	}
	return nil
}

// countLocalFiles walks dir counting regular files. Directories do not
// count toward the transfer total.
func countLocalFiles(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Engine) countRemoteFiles(dir string) (int, error) {
	infos, err := e.fs.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, fi := range infos {
		if fi.IsDir() {
			sub, err := e.countRemoteFiles(path.Join(dir, fi.Name()))
			if err != nil {
				return 0, err
			}
			count += sub
		} else {
			count++
		}
	}
	return count, nil
}

func (e *Engine) reportJobProgress(job *Job, sink ProgressSink) {
	if e.bus != nil {
		e.bus.PublishTransfer(events.EventTransferProgress, job.Direction.String(),
			job.Source, job.Dest, "files", int64(job.CompletedItems), int64(job.TotalItems), len(job.Failures), nil)
	}
	if sink != nil && !sink(int64(job.CompletedItems), int64(job.TotalItems)) {
		job.Cancel()
	}
}

func (e *Engine) publishFileResult(dir Direction, source, dest string, err error) {
	if e.bus == nil {
		return
	}
	t := events.EventTransferCompleted
	if err != nil {
		t = events.EventTransferFailed
	}
	e.bus.PublishTransfer(t, dir.String(), source, dest, "bytes", 0, 0, 0, err)
}

func (e *Engine) publishJobResult(job *Job, err error) {
	if e.bus == nil {
		return
	}
	t := events.EventTransferCompleted
	switch {
	case err != nil:
		t = events.EventTransferFailed
	case job.Partial():
		t = events.EventTransferPartial
	}
	e.bus.PublishTransfer(t, job.Direction.String(), job.Source, job.Dest, "files",
		int64(job.CompletedItems), int64(job.TotalItems), len(job.Failures), err)
}
