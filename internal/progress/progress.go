// Package progress renders transfer progress for the CLI. GUI
// embeddings observe progress through the event bus instead, which the
// engines publish to directly.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter is the interface the CLI commands drive during a transfer.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
}

var (
	_ Reporter = (*CLIProgress)(nil)
	_ Reporter = (*NoOpProgress)(nil)
)

// CLIProgress renders a terminal progress bar.
type CLIProgress struct {
	bar       *progressbar.ProgressBar
	showBytes bool
}

// NewCLIProgress creates a byte-oriented CLI progress reporter for
// single-file transfers.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{showBytes: true}
}

// NewCLIFileProgress creates a file-count CLI progress reporter for
// folder transfers.
func NewCLIFileProgress() *CLIProgress {
	return &CLIProgress{showBytes: false}
}

// Start initializes the progress bar with total size and description.
func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(p.showBytes),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the progress bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
}

// NoOpProgress discards all reports, for quiet mode and silent
// background operations.
type NoOpProgress struct{}

func NewNoOpProgress() *NoOpProgress { return &NoOpProgress{} }

func (p *NoOpProgress) Start(total int64, description string) {}
func (p *NoOpProgress) Update(current int64)                  {}
func (p *NoOpProgress) Finish()                               {}
func (p *NoOpProgress) Error(err error)                       {}
