package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sftpdeck/sftpdeck/internal/progress"
	"github.com/sftpdeck/sftpdeck/internal/transfer"
)

func newUploadCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "upload <local> <remote>",
		Short: "Upload a file or folder to the remote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(transfer.Upload, args[0], args[1], recursive)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Upload a folder tree")
	return cmd
}

func newDownloadCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "download <remote> <local>",
		Short: "Download a file or folder from the remote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(transfer.Download, args[0], args[1], recursive)
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Download a folder tree")
	return cmd
}

// transferReporter swaps the bar for a silent reporter in quiet mode.
func transferReporter(bar progress.Reporter) progress.Reporter {
	if quiet {
		return progress.NewNoOpProgress()
	}
	return bar
}

func runTransfer(direction transfer.Direction, source, dest string, recursive bool) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Disconnect()

	engine := transfer.NewEngine(sess, GetLogger(), nil)
	ctx := GetContext()

	if !recursive {
		reporter := transferReporter(progress.NewCLIProgress())
		started := false
		sink := func(done, total int64) bool {
			if !started {
				reporter.Start(total, fmt.Sprintf("%s %s", direction, source))
				started = true
			}
			reporter.Update(done)
			return ctx.Err() == nil
		}

		if direction == transfer.Upload {
			err = engine.UploadFile(ctx, source, dest, sink)
		} else {
			err = engine.DownloadFile(ctx, source, dest, sink)
		}
		if err != nil {
			reporter.Error(err)
			return err
		}
		reporter.Finish()
		return nil
	}

	reporter := transferReporter(progress.NewCLIFileProgress())
	started := false
	sink := func(done, total int64) bool {
		if !started {
			reporter.Start(total, fmt.Sprintf("%s %s", direction, source))
			started = true
		}
		reporter.Update(done)
		return ctx.Err() == nil
	}

	var job *transfer.Job
	if direction == transfer.Upload {
		job, err = engine.UploadFolder(ctx, source, dest, sink)
	} else {
		job, err = engine.DownloadFolder(ctx, source, dest, sink)
	}
	if err != nil {
		reporter.Error(err)
		return err
	}
	reporter.Finish()

	if len(job.Failures) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d items failed:\n", len(job.Failures), job.TotalItems)
		for _, f := range job.Failures {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", f.Path, f.Err)
		}
		return fmt.Errorf("transfer finished with %d failures", len(job.Failures))
	}
	if job.Cancelled() {
		fmt.Fprintf(os.Stderr, "Cancelled after %d of %d items\n", job.CompletedItems, job.TotalItems)
		return fmt.Errorf("transfer cancelled")
	}

	fmt.Printf("Transferred %d items\n", job.CompletedItems)
	return nil
}
