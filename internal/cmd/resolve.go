package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleygit/parley/internal/errors"
	"github.com/parleygit/parley/internal/tally"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [motion-id]",
	Short: "Route a failed vote to governance follow-up",
	Long: `Resolve inspects a motion's tally and routes conflicted outcomes
(tie, lost quorum, procedural anomaly) to their resolution strategy,
recording a follow-up task for the chair.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
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

	if !tally.Conflicted(result.Outcome) {
		fmt.Printf("%s is %s; nothing to resolve\n", result.MotionID, result.Outcome)
		return nil
	}

	res, err := a.resolver.Resolve(ctx, result)
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	fmt.Printf("outcome:    %s\n", res.Outcome)
	fmt.Printf("resolution: %s via %s\n", res.Status, res.Method)
	if res.EscalationPath != "" {
		fmt.Printf("escalation: %s\n", res.EscalationPath)
	}
	if res.RetryDeadline != nil {
		fmt.Printf("retry by:   %s\n", res.RetryDeadline.Format("2006-01-02 15:04"))
	}
	fmt.Printf("task:       %s\n", res.TaskRef)
	return nil
}
