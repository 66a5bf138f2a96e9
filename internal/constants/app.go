// Package constants centralizes tunables shared across the engines.
package constants

import (
	"time"
)

// AppName is the executable base name, used by the updater when
// terminating stale instances before replacing the binary.
const AppName = "sftpdeck"

// SSH session defaults
const (
	// DefaultSSHPort - standard SSH port used when a saved connection omits one
	DefaultSSHPort = 22

	// ConnectTimeout - dial timeout for new SSH connections.
	// Connection failures are never retried, so this bounds the whole attempt.
	ConnectTimeout = 30 * time.Second
)

// Retry configuration for remote operations
const (
	// RetryMaxAttempts - total attempts per remote call (1 initial + 2 retries)
	RetryMaxAttempts = 3

	// RetryInterval - fixed pause between attempts.
	// Deliberately not exponential: SFTP round trips are cheap and the
	// retry budget is small.
	RetryInterval = 1 * time.Second
)

// Transfer configuration
const (
	// TransferChunkSize - copy buffer size for file transfers (32 KB).
	// Matches the SFTP max packet payload so each chunk maps to one
	// request and progress callbacks fire at packet granularity.
	TransferChunkSize = 32 * 1024

	// EditPollInterval - how often an edit session rehashes the local
	// scratch copy looking for saves to push back
	EditPollInterval = 2 * time.Second
)

// Update configuration
const (
	// UpdateFeedURL - latest-release endpoint for the update check
	UpdateFeedURL = "https://api.github.com/repos/sftpdeck/sftpdeck/releases/latest"

	// UpdateReleasesPage - human-facing releases page, shown when a check fails
	UpdateReleasesPage = "https://github.com/sftpdeck/sftpdeck/releases"

	// UpdateCheckInterval - period between automatic update checks
	UpdateCheckInterval = 24 * time.Hour

	// UpdateCheckStartupDelay - delay before the first automatic check,
	// so startup is never blocked on the network
	UpdateCheckStartupDelay = 5 * time.Second

	// UpdateKillAttempts - best-effort attempts to terminate stale instances
	// before replacing the executable
	UpdateKillAttempts = 5

	// UpdateKillPause - pause between kill attempts
	UpdateKillPause = 1 * time.Second

	// UpdateReplaceAttempts - copy-over-in-place attempts when the
	// move-aside rename fails (some filesystems allow overwrite but not rename)
	UpdateReplaceAttempts = 10

	// UpdateReplacePause - pause between replace attempts, long enough for
	// Windows to release file handles of an exiting process
	UpdateReplacePause = 2 * time.Second

	// UpdateCleanupEnv - set on the relaunched process after a successful
	// update so it removes the ".old" and ".backup" leftovers at startup
	UpdateCleanupEnv = "SFTPDECK_CLEANUP_OLD"
)

// UpdateCriticalKeywords - changelog substrings that mark a release as
// critical. Matching is case-insensitive. Critical updates are surfaced
// prominently and never auto-installed.
var UpdateCriticalKeywords = []string{
	"critical", "security", "vulnerability", "urgent", "hotfix", "emergency",
}

// EventBusDefaultBuffer - per-subscriber channel buffer for the event bus
const EventBusDefaultBuffer = 256

// EventBusMaxBuffer - cap on caller-requested event buffers
const EventBusMaxBuffer = 10000
