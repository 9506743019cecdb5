package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/refrun/refrun/internal/paircheck"
)

var pairCmd = &cobra.Command{
	Use:          "pair <source-a> <source-b>",
	Short:        "Run two programs against the same input and compare outputs",
	Long:         `Compile and run two programs concurrently against the same input, normalize their outputs, and report whether they match, with a line diff on mismatch.`,
	Args:         cobra.ExactArgs(2),
	RunE:         runPair,
	SilenceUsage: true,
}

func runPair(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd, args)
	if err != nil {
		return err
	}
	defer eng.Close()

	base, err := eng.NewRequest(args[0])
	if err != nil {
		return err
	}

	res, err := eng.Checker.RunPair(cmd.Context(), args[0], args[1], base)
	if err != nil {
		return err
	}

	if res.Equal {
		fmt.Println("Outputs match.")
		return nil
	}

	fmt.Printf("Outputs differ (%s vs %s).\n\n", res.Leg1.Verdict(), res.Leg2.Verdict())
	fmt.Printf("--- %s\n%s\n\n", args[0], indent(res.Output1))
	fmt.Printf("--- %s\n%s\n", args[1], indent(res.Output2))

	if len(res.Diff) > 0 {
		fmt.Println("\nDiff:")
		printDiff(res.Diff)
	}

	os.Exit(1)
	return nil
}

func printDiff(segments []paircheck.Segment) {
	for _, seg := range segments {
		prefix := "  "

		switch seg.Type {
		case paircheck.SegmentRemoved:
			prefix = "- "
		case paircheck.SegmentAdded:
			prefix = "+ "
		}

		for _, line := range strings.Split(strings.TrimRight(seg.Text, "\n"), "\n") {
			fmt.Println(prefix + line)
		}
	}
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}

	return strings.Join(lines, "\n")
}
