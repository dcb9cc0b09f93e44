package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleygit/parley/internal/tally"
)

var tallyCmd = &cobra.Command{
	Use:   "tally [motion-id]",
	Short: "Tally a motion's votes",
	Long: `Tally resolves every ballot through the delegation graph, applies
the quorum rule, and classifies the outcome. The result is cached but the
ballots stay the source of truth.`,
	Args: cobra.ExactArgs(1),
	RunE: runTally,
}

func init() {
	rootCmd.AddCommand(tallyCmd)
}

func runTally(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.engine.Tally(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	printResult(result)
	return nil
}

func printResult(r *tally.Result) {
	fmt.Printf("motion:        %s\n", r.MotionID)
	fmt.Printf("outcome:       %s\n", r.Outcome)
	fmt.Printf("for/against:   %.1f / %.1f (abstain %.1f)\n", r.For, r.Against, r.Abstain)
	fmt.Printf("participation: %d of %d (%.0f%%), quorum met: %v\n",
		r.TotalVotes, r.EligibleVoters, r.ParticipationRate*100, r.QuorumMet)
	if r.UnresolvedWeight > 0 {
		fmt.Printf("unresolved:    %.1f weight from %v\n", r.UnresolvedWeight, r.Unresolved)
	}
	for _, issue := range r.AuditIssues {
		fmt.Printf("audit:         %s\n", issue)
	}
}
