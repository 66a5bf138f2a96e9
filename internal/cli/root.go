// Package cli provides the command-line interface for sftpdeck.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sftpdeck/sftpdeck/internal/logging"
	"github.com/sftpdeck/sftpdeck/internal/version"
)

var (
	// Global flags
	cfgFile        string
	hostFlag       string
	portFlag       int
	userFlag       string
	passwordFlag   string
	connectionFlag string
	verbose        bool
	debug          bool
	quiet          bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sftpdeck",
		Short: "sftpdeck - SFTP client with resilient transfers",
		Long: `sftpdeck ` + version.Version + ` - Built: ` + version.BuildTime + `
SFTP client core: remote file management, recursive transfers that
survive flaky links, and self-updating.

Connection flags (--host, --user, ...) or a saved profile
(--connection NAME) select the remote for file and transfer commands.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(-1) // zerolog.DebugLevel
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Settings file path")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Remote host")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0, "SSH port (default 22)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "SSH username")
	rootCmd.PersistentFlags().StringVar(&passwordFlag, "password", "", "SSH password")
	rootCmd.PersistentFlags().StringVar(&connectionFlag, "connection", "", "Saved connection profile name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bars")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	// Create a context that can be cancelled by signals
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop so repeated Ctrl+C presses are absorbed while cleanup runs
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling operations...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newMvCmd())
	rootCmd.AddCommand(newTouchCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newApplyUpdateCmd())
	rootCmd.AddCommand(newShortcutCmd())
	rootCmd.AddCommand(newConnectionCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
