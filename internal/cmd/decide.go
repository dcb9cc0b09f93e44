package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleygit/parley/internal/errors"
)

var decideCmd = &cobra.Command{
	Use:   "decide [motion-id]",
	Short: "Ask the merge oracle for a verdict",
	Long: `Decide evaluates a motion's tally. Acceptance requires a passed
outcome, quorum, and a clean ballot audit; --merge performs the merge
into the target branch immediately on acceptance.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecide,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback [motion-id] [positive|negative]",
	Short: "Tell the oracle whether a past decision was correct",
	Args:  cobra.ExactArgs(2),
	RunE:  runFeedback,
}

func init() {
	decideCmd.Flags().Bool("merge", false, "merge the motion branch on acceptance")

	rootCmd.AddCommand(decideCmd, feedbackCmd)
}

func runDecide(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	result, err := a.engine.CachedResult(ctx, args[0])
	if errors.IsNotFound(err) {
		result, err = a.engine.Tally(ctx, args[0])
	}
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}

	merge, _ := cmd.Flags().GetBool("merge")
	d, err := a.oracle.Decide(ctx, result, merge)
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}

	fmt.Printf("verdict:    %s (%s)\n", d.Verdict, d.Reason)
	fmt.Printf("confidence: %.2f\n", d.Confidence)
	if d.Merged {
		fmt.Printf("merged %s into %s\n", args[0], a.cfg.Repo.TargetBranch)
	} else if d.Accepted() && !merge {
		fmt.Println("run with --merge to perform the merge")
	}
	return nil
}

func runFeedback(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	var correct bool
	switch args[1] {
	case "positive":
		correct = true
	case "negative":
		correct = false
	default:
		return fmt.Errorf("feedback must be positive or negative, got %q", args[1])
	}

	weight, err := a.oracle.Feedback(cmd.Context(), args[0], correct)
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	fmt.Printf("oracle weight is now %.3f\n", weight)
	return nil
}
