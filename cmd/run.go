package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/refrun/refrun/internal/backend"
)

var runCmd = &cobra.Command{
	Use:          "run <source>",
	Short:        "Compile and run a single program",
	Long:         `Compile a source file (or run it directly for interpreted languages) against the configured input and resource limits, and print the verdict.`,
	Args:         cobra.ExactArgs(1),
	RunE:         runRun,
	SilenceUsage: true,
}

func runRun(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd, args)
	if err != nil {
		return err
	}
	defer eng.Close()

	req, err := eng.NewRequest(args[0])
	if err != nil {
		return err
	}

	outcome, err := eng.Pipeline.CompileAndRun(cmd.Context(), req)
	if err != nil {
		return err
	}

	verdict := outcome.Verdict()
	fmt.Printf("Verdict: %s\n", verdict)

	switch verdict {
	case backend.VerdictCompileError:
		fmt.Fprintln(os.Stderr, outcome.Result.Stderr)
	case backend.VerdictAC:
		fmt.Print(outcome.Result.Stdout)
	default:
		fmt.Println(backend.DisplayString(outcome.Result))
		if outcome.Result.Stderr != "" {
			fmt.Fprintln(os.Stderr, outcome.Result.Stderr)
		}
	}

	if outcome.Result.OutputTruncated {
		fmt.Fprintln(os.Stderr, "(output truncated)")
	}

	if verdict != backend.VerdictAC {
		os.Exit(1)
	}

	return nil
}
