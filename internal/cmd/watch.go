package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleygit/parley/internal/errors"
	"github.com/parleygit/parley/internal/motion"
	"github.com/parleygit/parley/internal/tui"
	"github.com/parleygit/parley/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of running tallies",
	Long: `Watch shows per-motion running tallies, refreshing when new ballot
refs land in the repository. With --once the current state is printed and
the command exits.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("once", false, "print the current state and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	fetch := dashboardFetch(a)

	if once, _ := cmd.Flags().GetBool("once"); once {
		rows, err := fetch(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s", userError(err))
		}
		if len(rows) == 0 {
			fmt.Println("no motions")
			return nil
		}
		for _, r := range rows {
			fmt.Printf("%s  %-9s  for %.1f  against %.1f  abstain %.1f  %s\n",
				r.MotionID, r.Status, r.For, r.Against, r.Abstain, r.Outcome)
		}
		return nil
	}

	watcher, err := watch.New(a.gitDir, a.bus, a.log)
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	watcher.Start()
	defer watcher.Stop()

	return tui.NewApp(fetch, a.bus).Run()
}

// dashboardFetch builds dashboard rows from open motions and their live
// tallies. Tally failures on one motion do not hide the others.
func dashboardFetch(a *app) tui.Fetch {
	return func(ctx context.Context) ([]tui.Row, error) {
		motions, err := a.motions.List(ctx)
		if err != nil {
			return nil, err
		}

		rows := make([]tui.Row, 0, len(motions))
		for _, m := range motions {
			row := tui.Row{
				MotionID: m.ID,
				Title:    m.Title,
				Status:   string(m.Status),
			}
			if m.Status == motion.StatusOpen || m.Status == motion.StatusClosed {
				result, err := a.engine.Tally(ctx, m.ID)
				if err == nil {
					row.For = result.For
					row.Against = result.Against
					row.Abstain = result.Abstain
					row.Votes = result.TotalVotes
					row.Outcome = result.Outcome
				} else if !errors.IsNotFound(err) {
					row.Outcome = "tally error"
				}
			}
			rows = append(rows, row)
		}
		return rows, nil
	}
}
