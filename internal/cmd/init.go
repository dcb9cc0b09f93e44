package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parleygit/parley/internal/config"
	"github.com/parleygit/parley/internal/gitcli"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a parliament repository",
	Long: `Initialize a git repository for parliamentary voting. Creates the
repository if needed and commits a charter document on the target branch
so motion branches have a base to merge into.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	repoPath := viper.GetString("repo.path")
	if repoPath == "" {
		repoPath, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	repo := gitcli.NewRepo(repoPath, cfg.GitTimeout())
	if repo.IsRepository(ctx) {
		fmt.Println("repository already initialized")
	} else {
		if err := repo.Init(ctx, cfg.Repo.TargetBranch); err != nil {
			return fmt.Errorf("init failed: %s", userError(err))
		}
	}

	exists, err := repo.BranchExists(ctx, cfg.Repo.TargetBranch)
	if err != nil {
		return err
	}
	if !exists {
		charter := "# Parliament\n\nMotions are branches; votes and debate live in refs and notes.\n"
		if _, err := repo.CommitFile(ctx, cfg.Repo.TargetBranch, "PARLEY.md", charter,
			"open parliament", cfg.Governance.Chair); err != nil {
			return fmt.Errorf("charter commit failed: %s", userError(err))
		}
	}

	fmt.Printf("parliament ready in %s (target branch %s)\n", repoPath, cfg.Repo.TargetBranch)
	return nil
}
