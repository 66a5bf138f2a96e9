package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sftpdeck/sftpdeck/internal/progress"
	"github.com/sftpdeck/sftpdeck/internal/update"
	"github.com/sftpdeck/sftpdeck/internal/version"
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Check for and install application updates",
	}
	cmd.AddCommand(newUpdateCheckCmd())
	cmd.AddCommand(newUpdateInstallCmd())
	return cmd
}

func newUpdateCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether a newer release is available",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			engine := update.NewEngine(store, GetLogger(), nil)

			artifact, err := engine.Check(GetContext())
			if err != nil {
				return fmt.Errorf("could not check for updates: %w", err)
			}
			if artifact == nil {
				fmt.Printf("You are up to date (%s)\n", version.Version)
				return nil
			}

			fmt.Printf("Update available: %s (you have %s)\n", artifact.Version, version.Version)
			if artifact.Critical {
				fmt.Println("This is a CRITICAL update. Install it as soon as possible.")
			}
			if artifact.Changelog != "" {
				fmt.Printf("\n%s\n", artifact.Changelog)
			}
			fmt.Println("\nRun 'sftpdeck update install' to install it.")
			return nil
		},
	}
}

func newUpdateInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Download and install the latest release",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			engine := update.NewEngine(store, GetLogger(), nil)
			ctx := GetContext()

			artifact, err := engine.Check(ctx)
			if err != nil {
				return fmt.Errorf("could not check for updates: %w", err)
			}
			if artifact == nil {
				fmt.Printf("Already up to date (%s)\n", version.Version)
				return nil
			}

			reporter := progress.NewCLIProgress()
			started := false
			path, err := engine.Download(ctx, artifact, func(done, total int64) bool {
				if !started && total > 0 {
					reporter.Start(total, "downloading "+artifact.Version)
					started = true
				}
				reporter.Update(done)
				return ctx.Err() == nil
			})
			if err != nil {
				reporter.Error(err)
				return err
			}
			reporter.Finish()

			if err := engine.Install(artifact, path); err != nil {
				return err
			}

			fmt.Println("Update started. The application will restart.")
			// Exit so the helper can replace this executable.
			os.Exit(0)
			return nil
		},
	}
}

// newApplyUpdateCmd is the hidden helper entry point. The freshly
// downloaded binary runs this command to replace the installed
// executable with itself, then relaunches the result.
func newApplyUpdateCmd() *cobra.Command {
	var target, backup string
	cmd := &cobra.Command{
		Use:    "apply-update",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				return fmt.Errorf("apply-update requires --target")
			}
			newBinary, err := os.Executable()
			if err != nil {
				return fmt.Errorf("failed to locate helper executable: %w", err)
			}

			applier := update.NewApplier(GetLogger())
			if err := applier.Apply(newBinary, target, backup); err != nil {
				return err
			}
			return update.Relaunch(target)
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "Executable to replace")
	cmd.Flags().StringVar(&backup, "backup", "", "Backup copy of the target")
	return cmd
}
