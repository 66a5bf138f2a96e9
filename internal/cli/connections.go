package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sftpdeck/sftpdeck/internal/config"
	"github.com/sftpdeck/sftpdeck/internal/constants"
)

func newConnectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connection",
		Short: "Manage saved connection profiles",
	}
	cmd.AddCommand(newConnectionListCmd())
	cmd.AddCommand(newConnectionAddCmd())
	cmd.AddCommand(newConnectionRmCmd())
	return cmd
}

func newConnectionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			conns := store.Connections()
			if len(conns) == 0 {
				fmt.Println("No connections saved.")
				return nil
			}

			names := make([]string, 0, len(conns))
			for name := range conns {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tHOST\tPORT\tUSER")
			for _, name := range names {
				c := conns[name]
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, c.Host, c.Port, c.Username)
			}
			return w.Flush()
		},
	}
}

func newConnectionAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Save the current --host/--user flags as a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hostFlag == "" || userFlag == "" {
				return fmt.Errorf("connection add requires --host and --user")
			}
			store, err := loadStore()
			if err != nil {
				return err
			}
			port := portFlag
			if port == 0 {
				port = constants.DefaultSSHPort
			}
			conn := config.Connection{
				Host:     hostFlag,
				Port:     port,
				Username: userFlag,
				Password: passwordFlag,
			}
			if err := store.SaveConnection(args[0], conn); err != nil {
				return err
			}
			fmt.Printf("Saved connection %q (%s@%s:%d)\n", args[0], conn.Username, conn.Host, conn.Port)
			return nil
		},
	}
}

func newConnectionRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a saved connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			if err := store.DeleteConnection(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted connection %q\n", args[0])
			return nil
		},
	}
}
