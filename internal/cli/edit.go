package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sftpdeck/sftpdeck/internal/transfer"
)

func newEditCmd() *cobra.Command {
	var editorFlag string
	cmd := &cobra.Command{
		Use:   "edit <remote>",
		Short: "Edit a remote file in your local editor",
		Long: `Downloads the remote file to a scratch copy, opens it in your
editor, and pushes every save back to the remote while you work. The
scratch copy is removed when the editor exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(args[0], editorFlag)
		},
	}
	cmd.Flags().StringVar(&editorFlag, "editor", "", "Editor command (default $EDITOR)")
	return cmd
}

func runEdit(remotePath, editor string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Disconnect()

	engine := transfer.NewEngine(sess, GetLogger(), nil)
	ctx := GetContext()

	edit, err := engine.OpenForEdit(ctx, remotePath)
	if err != nil {
		return err
	}
	defer edit.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	go edit.Watch(watchCtx, 0, func(err error) {
		if err == nil {
			fmt.Fprintf(os.Stderr, "Pushed changes to %s\n", remotePath)
		}
	})

	err = runEditor(editor, edit.LocalPath)
	stopWatch()
	if err != nil {
		return err
	}

	// Catch a save the poll loop had not picked up yet.
	synced, err := edit.SyncBack(ctx)
	if err != nil {
		return fmt.Errorf("failed to push final changes: %w", err)
	}
	if synced {
		fmt.Fprintf(os.Stderr, "Pushed changes to %s\n", remotePath)
	}
	return nil
}

func runEditor(editor, path string) error {
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		if runtime.GOOS == "windows" {
			editor = "notepad"
		} else {
			editor = "vi"
		}
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q failed: %w", editor, err)
	}
	return nil
}
