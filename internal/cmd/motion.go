package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleygit/parley/internal/motion"
)

var motionCmd = &cobra.Command{
	Use:   "motion",
	Short: "Manage motions",
}

var motionOpenCmd = &cobra.Command{
	Use:   "open [title]",
	Short: "Open a new motion",
	Args:  cobra.ExactArgs(1),
	RunE:  runMotionOpen,
}

var motionSecondCmd = &cobra.Command{
	Use:   "second [motion-id]",
	Short: "Second a motion",
	Args:  cobra.ExactArgs(1),
	RunE:  runMotionSecond,
}

var motionCloseCmd = &cobra.Command{
	Use:   "close [motion-id]",
	Short: "Close voting on a motion",
	Args:  cobra.ExactArgs(1),
	RunE:  runMotionClose,
}

var motionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List motions",
	Args:  cobra.NoArgs,
	RunE:  runMotionList,
}

var motionShowCmd = &cobra.Command{
	Use:   "show [motion-id]",
	Short: "Show one motion with its seconds",
	Args:  cobra.ExactArgs(1),
	RunE:  runMotionShow,
}

func init() {
	motionOpenCmd.Flags().String("body", "", "motion body text")
	motionOpenCmd.Flags().String("author", "", "motion author identity")
	_ = motionOpenCmd.MarkFlagRequired("author")

	motionSecondCmd.Flags().String("speaker", "", "seconding identity")
	_ = motionSecondCmd.MarkFlagRequired("speaker")

	motionCmd.AddCommand(motionOpenCmd, motionSecondCmd, motionCloseCmd, motionListCmd, motionShowCmd)
	rootCmd.AddCommand(motionCmd)
}

func runMotionOpen(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	body, _ := cmd.Flags().GetString("body")
	author, _ := cmd.Flags().GetString("author")

	m, err := a.motions.Open(cmd.Context(), args[0], body, author)
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	fmt.Printf("opened %s on branch %s\n", m.ID, m.Branch)
	return nil
}

func runMotionSecond(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	speaker, _ := cmd.Flags().GetString("speaker")
	if err := a.motions.Second(cmd.Context(), args[0], speaker); err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	fmt.Printf("%s seconded by %s\n", args[0], speaker)
	return nil
}

func runMotionClose(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.motions.Close(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	fmt.Printf("%s closed\n", args[0])
	return nil
}

func runMotionList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	motions, err := a.motions.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	if len(motions) == 0 {
		fmt.Println("no motions")
		return nil
	}
	for _, m := range motions {
		fmt.Printf("%s  %-9s  %s  (%s)\n", m.ID, m.Status, m.Title, m.Author)
	}
	return nil
}

func runMotionShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	m, err := a.motions.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}

	fmt.Printf("motion:  %s\n", m.ID)
	fmt.Printf("title:   %s\n", m.Title)
	fmt.Printf("author:  %s\n", m.Author)
	fmt.Printf("status:  %s\n", m.Status)
	fmt.Printf("branch:  %s\n", m.Branch)
	fmt.Printf("opened:  %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"))

	seconds, err := a.motions.Seconds(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	if len(seconds) > 0 {
		fmt.Println("seconds:")
		for _, s := range seconds {
			fmt.Printf("  %s at %s\n", s.Speaker, s.Time.Format("2006-01-02 15:04:05"))
		}
	}
	if m.Status == motion.StatusOpen && len(seconds) == 0 {
		fmt.Println("seconds: none yet")
	}
	return nil
}
