package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a remote directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Disconnect()

			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			entries, err := sess.List(GetContext(), dir)
			if err != nil {
				return err
			}

			fmt.Printf("%s:\n", sess.CurrentPath())
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, e := range entries {
				kind := "-"
				if e.IsDir {
					kind = "d"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					kind, e.HumanSize(), e.ModTime.Format("2006-01-02 15:04"), e.Name)
			}
			return w.Flush()
		},
	}
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a remote directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Disconnect()

			if err := sess.MakeDir(GetContext(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Created %s\n", args[0])
			return nil
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a remote file or empty directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Disconnect()

			if err := sess.Delete(GetContext(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <old> <new>",
		Short: "Rename a remote file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Disconnect()

			if err := sess.Rename(GetContext(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Renamed %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

func newTouchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "touch <path>",
		Short: "Create an empty remote file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Disconnect()

			if err := sess.CreateFile(GetContext(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Created %s\n", args[0])
			return nil
		},
	}
}
