package update

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/sftpdeck/sftpdeck/internal/constants"
	"github.com/sftpdeck/sftpdeck/internal/logging"
)

// BackupExecutable copies the target executable to a ".backup" sibling
// and returns the backup path. The backup is the rollback source if
// the replacement goes wrong, so it must not be touched until the new
// binary is confirmed in place.
func BackupExecutable(target string) (string, error) {
	backup := target + ".backup"
	if err := copyFile(target, backup); err != nil {
		return "", fmt.Errorf("failed to back up executable: %w", err)
	}
	return backup, nil
}

// Applier performs the executable replacement. It runs inside the
// helper process (the freshly downloaded binary invoked with the
// apply-update command) so the running target can exit first.
type Applier struct {
	Attempts int
	Pause    time.Duration
	logger   *logging.Logger
}

// NewApplier returns an applier with the production retry budget.
func NewApplier(logger *logging.Logger) *Applier {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return &Applier{
		Attempts: constants.UpdateReplaceAttempts,
		Pause:    constants.UpdateReplacePause,
		logger:   logger,
	}
}

// Apply replaces target with newBinary. The preferred path is a
// move-aside rename to ".old" followed by a fresh copy; when the
// rename is refused the applier falls back to copying over the file
// in place, retrying while the exiting process releases its handle.
// On failure the original is restored, from the ".old" file when the
// rename happened, otherwise from backup. A failed restore is the one
// unrecoverable outcome.
func (a *Applier) Apply(newBinary, target, backup string) error {
	old := target + ".old"
	movedAside := false
	if err := os.Rename(target, old); err == nil {
		movedAside = true
	} else {
		a.logger.Warn().Err(err).Msg("Move-aside rename refused, copying in place")
	}

	var copyErr error
	for attempt := 1; attempt <= a.Attempts; attempt++ {
		copyErr = copyFile(newBinary, target)
		if copyErr == nil {
			break
		}
		a.logger.Warn().Err(copyErr).Int("attempt", attempt).Msg("Replace attempt failed")
		if attempt < a.Attempts {
			time.Sleep(a.Pause)
		}
	}

	if copyErr != nil {
		if restoreErr := a.restore(old, target, backup, movedAside); restoreErr != nil {
			return fmt.Errorf("update failed and restore failed: %v (update error: %w)", restoreErr, copyErr)
		}
		return fmt.Errorf("failed to install new executable: %w", copyErr)
	}

	if err := os.Chmod(target, 0755); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to mark executable")
	}

	// Replacement confirmed; the safety copies can go.
	if movedAside {
		_ = os.Remove(old)
	}
	if backup != "" {
		_ = os.Remove(backup)
	}
	return nil
}

func (a *Applier) restore(old, target, backup string, movedAside bool) error {
	restored := false
	if movedAside {
		if err := os.Rename(old, target); err == nil {
			a.logger.Info().Msg("Restored original executable from move-aside copy")
			restored = true
		}
	}
	if !restored {
		if backup == "" {
			return fmt.Errorf("no backup available")
		}
		if err := copyFile(backup, target); err != nil {
			return fmt.Errorf("failed to restore backup: %w", err)
		}
		a.logger.Info().Msg("Restored original executable from backup")
	}

	// A completed rollback is as terminal as a confirmed replace:
	// the safety copies must not outlive it.
	_ = os.RemoveAll(old)
	if backup != "" {
		_ = os.Remove(backup)
	}
	return nil
}

// LaunchHelper starts the downloaded binary as the apply-update helper
// and detaches. The caller should exit promptly so its executable is
// free to replace; the helper's retry loop absorbs the gap.
func LaunchHelper(newBinary, target, backup string) error {
	if err := os.Chmod(newBinary, 0755); err != nil {
		return fmt.Errorf("failed to mark helper executable: %w", err)
	}
	args := []string{"apply-update", "--target", target}
	if backup != "" {
		args = append(args, "--backup", backup)
	}
	cmd := exec.Command(newBinary, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start update helper: %w", err)
	}
	return cmd.Process.Release()
}

// Relaunch starts the replaced target with the cleanup flag set so the
// new process removes the update leftovers at startup.
func Relaunch(target string) error {
	cmd := exec.Command(target)
	cmd.Env = append(os.Environ(), constants.UpdateCleanupEnv+"=1")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to relaunch: %w", err)
	}
	return cmd.Process.Release()
}

// CleanupLeftovers removes the ".old" and ".backup" siblings of the
// running executable and the staged download directory, which still
// holds the helper binary. Called at startup when the cleanup env flag
// is set after a successful update; retried briefly because Windows
// may still hold the old file or the exiting helper open.
func CleanupLeftovers() {
	if os.Getenv(constants.UpdateCleanupEnv) != "1" {
		return
	}
	defer os.Unsetenv(constants.UpdateCleanupEnv)

	exe, err := os.Executable()
	if err != nil {
		return
	}
	for _, leftover := range []string{exe + ".old", exe + ".backup"} {
		for i := 0; i < 3; i++ {
			if err := os.Remove(leftover); err == nil || os.IsNotExist(err) {
				break
			}
			time.Sleep(500 * time.Millisecond)
		}
	}

	for i := 0; i < 3; i++ {
		if err := os.RemoveAll(DownloadDir()); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// KillOtherInstances terminates other processes running the same
// executable, with a few attempts and pauses. Best effort: a stale
// instance that survives just makes the in-place fallback slower.
func KillOtherInstances(name string, logger *logging.Logger) {
	for attempt := 1; attempt <= constants.UpdateKillAttempts; attempt++ {
		err := killByName(name)
		if err == nil {
			return
		}
		if attempt < constants.UpdateKillAttempts {
			time.Sleep(constants.UpdateKillPause)
		}
	}
	if logger != nil {
		logger.Debug().Str("name", name).Msg("No other instances terminated")
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
