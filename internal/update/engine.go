package update

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/sftpdeck/sftpdeck/internal/config"
	"github.com/sftpdeck/sftpdeck/internal/constants"
	"github.com/sftpdeck/sftpdeck/internal/events"
	"github.com/sftpdeck/sftpdeck/internal/logging"
	"github.com/sftpdeck/sftpdeck/internal/version"
)

// State of the update engine.
type State string

const (
	StateIdle            State = "idle"
	StateChecking        State = "checking"
	StateUpToDate        State = "up_to_date"
	StateUpdateAvailable State = "update_available"
	StateDownloading     State = "downloading"
	StateInstalling      State = "installing"
	StateRestarting      State = "restarting"
	StateRolledBack      State = "rolled_back"
	StateFailed          State = "failed"
)

// Engine drives the update lifecycle: check, download, install. It
// owns no session state and can run alongside active transfers.
type Engine struct {
	mu    sync.Mutex
	state State

	feedURL string
	client  *retryablehttp.Client
	store   *config.Store
	logger  *logging.Logger
	bus     *events.EventBus

	currentVersion string
}

// NewEngine creates an update engine. The store may be nil when no
// preferences are persisted; the bus may be nil.
func NewEngine(store *config.Store, logger *logging.Logger, bus *events.EventBus) *Engine {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return &Engine{
		state:          StateIdle,
		feedURL:        constants.UpdateFeedURL,
		client:         newFeedClient(),
		store:          store,
		logger:         logger,
		bus:            bus,
		currentVersion: version.Version,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Check queries the release feed and returns the artifact when a newer
// version is available, or nil when up to date. A feed failure returns
// an error: "could not check" is a different answer than "up to date"
// and callers must not conflate them.
func (e *Engine) Check(ctx context.Context) (*Artifact, error) {
	e.setState(StateChecking)
	e.recordCheckTime()

	rel, err := fetchLatestRelease(ctx, e.client, e.feedURL)
	if err != nil {
		e.setState(StateFailed)
		if e.bus != nil {
			e.bus.PublishUpdate(events.EventUpdateFailed, "", false, err)
		}
		return nil, err
	}

	if rel.Prerelease && !e.includePrereleases() {
		e.setState(StateUpToDate)
		return nil, nil
	}

	artifact, ok := releaseToArtifact(rel)
	if !ok {
		e.logger.Debug().Str("tag", rel.TagName).Msg("Latest release has no usable asset")
		e.setState(StateUpToDate)
		return nil, nil
	}

	if !IsNewer(artifact.Version, e.currentVersion) {
		e.setState(StateUpToDate)
		return nil, nil
	}

	e.setState(StateUpdateAvailable)
	e.logger.Info().
		Str("version", artifact.Version).
		Bool("critical", artifact.Critical).
		Msg("Update available")
	if e.bus != nil {
		e.bus.PublishUpdate(events.EventUpdateAvailable, artifact.Version, artifact.Critical, nil)
	}
	return artifact, nil
}

// Download fetches the artifact into the system temp directory.
func (e *Engine) Download(ctx context.Context, artifact *Artifact, progress DownloadProgress) (string, error) {
	e.setState(StateDownloading)
	path, err := Download(ctx, artifact, DownloadDir(), progress)
	if err != nil {
		e.setState(StateFailed)
		return "", err
	}
	return path, nil
}

// Install applies a downloaded artifact. Installer-style assets are
// launched and left to do their own work; bare executables go through
// the backup, kill, helper-process replacement protocol. On the
// replacement path the caller should exit soon after Install returns
// so the helper can take over the executable.
func (e *Engine) Install(artifact *Artifact, downloadedPath string) error {
	e.setState(StateInstalling)

	if isInstallerAsset(artifact.AssetName) {
		if err := e.launchInstaller(downloadedPath); err != nil {
			e.setState(StateFailed)
			e.publishInstallResult(artifact, err)
			return err
		}
		e.setState(StateRestarting)
		e.publishInstallResult(artifact, nil)
		return nil
	}

	target, err := os.Executable()
	if err != nil {
		e.setState(StateFailed)
		return fmt.Errorf("failed to locate running executable: %w", err)
	}

	backup, err := BackupExecutable(target)
	if err != nil {
		// Degraded but not fatal: the move-aside copy still allows
		// a restore if the replacement fails.
		e.logger.Error().Err(err).Msg("Backup failed, continuing without one")
		backup = ""
	}

	KillOtherInstances(filepath.Base(target), e.logger)

	if err := LaunchHelper(downloadedPath, target, backup); err != nil {
		e.setState(StateFailed)
		e.publishInstallResult(artifact, err)
		return err
	}

	e.setState(StateRestarting)
	e.publishInstallResult(artifact, nil)
	return nil
}

func (e *Engine) launchInstaller(path string) error {
	if err := os.Chmod(path, 0755); err != nil {
		return fmt.Errorf("failed to mark installer executable: %w", err)
	}
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch installer: %w", err)
	}
	return cmd.Process.Release()
}

func (e *Engine) publishInstallResult(artifact *Artifact, err error) {
	if e.bus == nil {
		return
	}
	t := events.EventUpdateInstalled
	if err != nil {
		t = events.EventUpdateFailed
	}
	e.bus.PublishUpdate(t, artifact.Version, artifact.Critical, err)
}

// StartAutoCheck launches the periodic update check: one check after a
// short startup delay, then one per interval, until ctx is cancelled.
// Auto-install is gated on the preference and never applies to
// critical releases, which always require an explicit decision.
func (e *Engine) StartAutoCheck(ctx context.Context) {
	if e.store != nil && !e.store.GetBool(config.KeyAutoUpdateCheck, true) {
		return
	}

	go func() {
		select {
		case <-time.After(constants.UpdateCheckStartupDelay):
		case <-ctx.Done():
			return
		}
		e.autoCheckOnce(ctx)

		ticker := time.NewTicker(constants.UpdateCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.autoCheckOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (e *Engine) autoCheckOnce(ctx context.Context) {
	artifact, err := e.Check(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Automatic update check failed")
		return
	}
	if artifact == nil {
		return
	}

	autoInstall := e.store != nil && e.store.GetBool(config.KeyAutoInstallUpdates, false)
	if !autoInstall || artifact.Critical {
		// Surfaced on the bus by Check; the user decides.
		return
	}

	path, err := e.Download(ctx, artifact, nil)
	if err != nil {
		e.logger.Error().Err(err).Msg("Automatic update download failed")
		return
	}
	if err := e.Install(artifact, path); err != nil {
		e.logger.Error().Err(err).Msg("Automatic update install failed")
	}
}

func (e *Engine) includePrereleases() bool {
	return e.store != nil && e.store.GetBool(config.KeyIncludePrereleases, false)
}

func (e *Engine) recordCheckTime() {
	if e.store == nil {
		return
	}
	e.store.Set(config.KeyLastUpdateCheck, time.Now().Format(time.RFC3339))
	if err := e.store.Save(); err != nil {
		e.logger.Debug().Err(err).Msg("Failed to persist last check time")
	}
}
