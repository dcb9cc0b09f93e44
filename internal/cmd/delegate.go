package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var delegateCmd = &cobra.Command{
	Use:   "delegate",
	Short: "Manage vote delegations",
}

var delegateAddCmd = &cobra.Command{
	Use:   "add [delegator] [delegate]",
	Short: "Delegate a voter's ballot to another voter",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelegateAdd,
}

var delegateRemoveCmd = &cobra.Command{
	Use:   "remove [delegator] [delegate]",
	Short: "Revoke a delegation",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelegateRemove,
}

var delegateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live delegations",
	Args:  cobra.NoArgs,
	RunE:  runDelegateList,
}

var delegateResolveCmd = &cobra.Command{
	Use:   "resolve [voter]",
	Short: "Show where a voter's ballot ends up",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelegateResolve,
}

func init() {
	delegateAddCmd.Flags().Float64("weight", 1.0, "delegated weight")
	delegateAddCmd.Flags().Duration("expires-in", 0, "delegation lifetime (0 means no expiry)")

	delegateCmd.AddCommand(delegateAddCmd, delegateRemoveCmd, delegateListCmd, delegateResolveCmd)
	rootCmd.AddCommand(delegateCmd)
}

func runDelegateAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	weight, _ := cmd.Flags().GetFloat64("weight")
	lifetime, _ := cmd.Flags().GetDuration("expires-in")
	var expires *time.Time
	if lifetime > 0 {
		t := time.Now().UTC().Add(lifetime)
		expires = &t
	}

	edge, err := a.graph.Add(cmd.Context(), args[0], args[1], weight, expires)
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	fmt.Printf("%s delegates to %s (weight %.1f)\n", edge.Delegator, edge.Delegate, edge.Weight)
	return nil
}

func runDelegateRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.graph.Remove(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	fmt.Printf("delegation %s -> %s removed\n", args[0], args[1])
	return nil
}

func runDelegateList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	edges, skipped, err := a.graph.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	if len(edges) == 0 {
		fmt.Println("no delegations")
		return nil
	}
	for _, e := range edges {
		line := fmt.Sprintf("%s -> %s (weight %.1f)", e.Delegator, e.Delegate, e.Weight)
		if e.Expires != nil {
			line += " expires " + e.Expires.Format("2006-01-02 15:04")
		}
		fmt.Println(line)
	}
	if skipped > 0 {
		fmt.Printf("(%d expired or unreadable edges skipped)\n", skipped)
	}
	return nil
}

func runDelegateResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.graph.Resolve(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s", userError(err))
	}
	if res.Terminal == res.Origin {
		fmt.Printf("%s votes directly\n", res.Origin)
		return nil
	}
	fmt.Printf("%s\n", strings.Join(res.Chain, " -> "))
	return nil
}
