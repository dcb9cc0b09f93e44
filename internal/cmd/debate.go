package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var debateCmd = &cobra.Command{
	Use:   "debate",
	Short: "Post and read debate entries",
}

var debatePostCmd = &cobra.Command{
	Use:   "post [motion-id] [argument]",
	Short: "Post a debate entry on a motion",
	Args:  cobra.ExactArgs(2),
	RunE:  runDebatePost,
}

var debateListCmd = &cobra.Command{
	Use:   "list [motion-id]",
	Short: "List a motion's debate in order",
	Args:  cobra.ExactArgs(1),
	RunE:  runDebateList,
}

func init() {
	debatePostCmd.Flags().String("speaker", "", "speaker identity")
	debatePostCmd.Flags().String("stance", "neutral", "stance: pro, con, or neutral")
	_ = debatePostCmd.MarkFlagRequired("speaker")

	debateCmd.AddCommand(debatePostCmd, debateListCmd)
	rootCmd.AddCommand(debateCmd)
}

func runDebatePost(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	speaker, _ := cmd.Flags().GetString("speaker")
	stance, _ := cmd.Flags().GetString("stance")

	entry, err := a.debate.Post(cmd.Context(), args[0], speaker, stance, args[1])
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	fmt.Printf("posted entry %d on %s\n", entry.Seq, args[0])
	return nil
}

func runDebateList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	entries, malformed, err := a.debate.List(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	if len(entries) == 0 {
		fmt.Println("no debate yet")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%3d  [%-7s]  %s: %s\n", e.Seq, e.Stance, e.Speaker, e.Argument)
	}
	if malformed > 0 {
		fmt.Printf("(%d malformed entries skipped)\n", malformed)
	}
	return nil
}
