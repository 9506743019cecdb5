package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var detectForce bool

var detectCmd = &cobra.Command{
	Use:          "detect",
	Short:        "Discover C/C++ toolchains on this machine",
	Long:         `Scan the executable search path and conventional install locations for compilers, rank them, and print the recommendation. Results are cached for 24 hours.`,
	Args:         cobra.NoArgs,
	RunE:         runDetect,
	SilenceUsage: true,
}

func init() {
	detectCmd.Flags().BoolVar(&detectForce, "force", false, "Ignore the cache and rescan")
}

func runDetect(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd, args)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.Registry.Detect(cmd.Context(), detectForce)
	if err != nil {
		return err
	}

	if !res.Success || len(res.Compilers) == 0 {
		fmt.Println("No compilers found.")
		for _, s := range res.Suggestions {
			fmt.Println("  - " + s)
		}

		return nil
	}

	fmt.Printf("Found %d compiler(s):\n\n", len(res.Compilers))

	for _, c := range res.Compilers {
		marker := " "
		if res.Recommended != nil && c.Path == res.Recommended.Path {
			marker = "*"
		}

		fmt.Printf("%s %-12s %-10s score=%-4d %s\n", marker, c.Family, c.Version, c.PriorityScore, c.Path)

		if eng.Config.Verbose {
			fmt.Printf("    standards: %s\n", strings.Join(c.SupportedStandards, ", "))
		}
	}

	return nil
}
