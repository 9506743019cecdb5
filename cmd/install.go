package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installManual bool

var installCmd = &cobra.Command{
	Use:          "install",
	Short:        "Install a C/C++ toolchain",
	Long:         `Attempt an automatic, platform-specific toolchain installation with integrity verification of downloaded artifacts. Falls back to a manual guide when automation is not possible.`,
	Args:         cobra.NoArgs,
	RunE:         runInstall,
	SilenceUsage: true,
}

func init() {
	installCmd.Flags().BoolVar(&installManual, "manual", false, "Print the manual installation guide instead")
}

func runInstall(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd, args)
	if err != nil {
		return err
	}
	defer eng.Close()

	outcome := eng.Installer.ManualGuide()
	if !installManual {
		outcome = eng.Installer.Install(cmd.Context())
	}

	fmt.Println(outcome.Message)

	if len(outcome.NextSteps) > 0 {
		fmt.Println("\nNext steps:")
		for _, step := range outcome.NextSteps {
			fmt.Println("  - " + step)
		}
	}

	if outcome.RestartRequired {
		fmt.Println("\nA terminal restart is required before the toolchain is visible.")
	}

	if outcome.Success {
		// A successful install invalidates any cached "no compilers found".
		if err := eng.Registry.ClearCache(); err != nil {
			eng.Logger.Warn("failed to clear detection cache after install")
		}
	}

	return nil
}
