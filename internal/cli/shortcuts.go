package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sftpdeck/sftpdeck/internal/config"
)

func newShortcutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shortcut",
		Short: "Manage and run saved command shortcuts",
	}
	cmd.AddCommand(newShortcutListCmd())
	cmd.AddCommand(newShortcutAddCmd())
	cmd.AddCommand(newShortcutRmCmd())
	cmd.AddCommand(newShortcutRunCmd())
	return cmd
}

func newShortcutListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved shortcuts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			shortcuts := store.Shortcuts()
			if len(shortcuts) == 0 {
				fmt.Println("No shortcuts saved.")
				return nil
			}

			names := make([]string, 0, len(shortcuts))
			for name := range shortcuts {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tCOMMAND\tDESCRIPTION")
			for _, name := range names {
				sc := shortcuts[name]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, sc.Category, sc.Command, sc.Description)
			}
			return w.Flush()
		},
	}
}

func newShortcutAddCmd() *cobra.Command {
	var description, category string
	cmd := &cobra.Command{
		Use:   "add <name> <command>",
		Short: "Save a command shortcut",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			sc := config.Shortcut{
				Command:     args[1],
				Description: description,
				Category:    category,
			}
			if err := store.SaveShortcut(args[0], sc); err != nil {
				return err
			}
			fmt.Printf("Saved shortcut %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "What the shortcut does")
	cmd.Flags().StringVar(&category, "category", "", "Grouping category (default General)")
	return cmd
}

func newShortcutRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a saved shortcut",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			if err := store.DeleteShortcut(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted shortcut %q\n", args[0])
			return nil
		},
	}
}

func newShortcutRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Run a saved shortcut on the remote host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			sc, ok := store.Shortcuts()[args[0]]
			if !ok {
				return fmt.Errorf("no shortcut named %q", args[0])
			}

			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Disconnect()

			stdout, stderr, exitCode, err := sess.Exec(sc.Command)
			if err != nil {
				return err
			}
			if stdout != "" {
				fmt.Print(stdout)
			}
			if stderr != "" {
				fmt.Fprint(os.Stderr, stderr)
			}
			if exitCode != 0 {
				return fmt.Errorf("command exited with status %d", exitCode)
			}
			return nil
		},
	}
}
