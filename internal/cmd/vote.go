package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Cast and inspect votes",
}

var voteCastCmd = &cobra.Command{
	Use:   "cast [motion-id] [for|against|abstain]",
	Short: "Cast a ballot on an open motion",
	Args:  cobra.ExactArgs(2),
	RunE:  runVoteCast,
}

var voteListCmd = &cobra.Command{
	Use:   "list [motion-id]",
	Short: "List a motion's ballots",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoteList,
}

func init() {
	voteCastCmd.Flags().String("voter", "", "voter identity")
	voteCastCmd.Flags().Float64("weight", 1.0, "ballot weight")
	_ = voteCastCmd.MarkFlagRequired("voter")

	voteCmd.AddCommand(voteCastCmd, voteListCmd)
	rootCmd.AddCommand(voteCmd)
}

func runVoteCast(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	voter, _ := cmd.Flags().GetString("voter")
	weight, _ := cmd.Flags().GetFloat64("weight")

	v, err := a.engine.Cast(cmd.Context(), args[0], voter, args[1], weight)
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	fmt.Printf("%s voted %s on %s (weight %.1f)\n", v.Voter, v.Value, v.MotionID, v.Weight)
	return nil
}

func runVoteList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	votes, malformed, err := a.engine.Votes(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	if len(votes) == 0 {
		fmt.Println("no ballots yet")
		return nil
	}
	for _, v := range votes {
		fmt.Printf("%-30s  %-8s  weight %.1f  %s\n",
			v.Voter, v.Value, v.Weight, v.Timestamp.Format("2006-01-02 15:04:05"))
	}
	if malformed > 0 {
		fmt.Printf("(%d malformed ballots skipped)\n", malformed)
	}
	return nil
}
