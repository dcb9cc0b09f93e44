package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleygit/parley/internal/motion"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the parliament's state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	motions, err := a.motions.List(ctx)
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}

	byStatus := map[motion.Status]int{}
	for _, m := range motions {
		byStatus[m.Status]++
	}

	edges, _, err := a.graph.List(ctx)
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	tasks, _, err := a.resolver.Tasks().List(ctx)
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}

	fmt.Printf("repository:    %s\n", a.repo.Dir())
	fmt.Printf("target branch: %s\n", a.cfg.Repo.TargetBranch)
	fmt.Printf("motions:       %d total", len(motions))
	for _, s := range []motion.Status{motion.StatusOpen, motion.StatusClosed, motion.StatusMerged, motion.StatusAbandoned} {
		if byStatus[s] > 0 {
			fmt.Printf(", %d %s", byStatus[s], s)
		}
	}
	fmt.Println()
	fmt.Printf("delegations:   %d\n", len(edges))
	fmt.Printf("open tasks:    %d\n", len(tasks))
	fmt.Printf("quorum:        %.0f%% of %d eligible\n",
		a.cfg.Governance.QuorumThreshold*100, a.cfg.Governance.EligibleVoters)
	return nil
}
