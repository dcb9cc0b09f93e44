package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Governance follow-up tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List follow-up tasks, newest first",
	Args:  cobra.NoArgs,
	RunE:  runTasksList,
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
	rootCmd.AddCommand(tasksCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	tasks, malformed, err := a.resolver.Tasks().List(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	if len(tasks) == 0 {
		fmt.Println("no follow-up tasks")
		return nil
	}
	for _, t := range tasks {
		line := fmt.Sprintf("[%-6s] %s  %s  (%s, assigned %s)",
			t.Priority, t.MotionID, t.Description, t.Status, t.Assignee)
		if t.RetryDeadline != nil {
			line += "  retry by " + t.RetryDeadline.Format("2006-01-02 15:04")
		}
		fmt.Println(line)
	}
	if malformed > 0 {
		fmt.Printf("(%d malformed tasks skipped)\n", malformed)
	}
	return nil
}
