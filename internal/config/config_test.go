package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := loadDefaults(t)

	if cfg.Governance.QuorumThreshold != 0.5 {
		t.Errorf("quorum_threshold = %v, want 0.5", cfg.Governance.QuorumThreshold)
	}
	if cfg.Governance.MaxDelegationDepth != 10 {
		t.Errorf("max_delegation_depth = %d, want 10", cfg.Governance.MaxDelegationDepth)
	}
	if cfg.Governance.RetryDelayDays != 3 {
		t.Errorf("retry_delay_days = %d, want 3", cfg.Governance.RetryDelayDays)
	}
	if cfg.Repo.TargetBranch != "main" {
		t.Errorf("target_branch = %q, want main", cfg.Repo.TargetBranch)
	}
	if got := cfg.GitTimeout(); got != 30*time.Second {
		t.Errorf("GitTimeout = %v, want 30s", got)
	}
	if got := cfg.RetryDelay(); got != 72*time.Hour {
		t.Errorf("RetryDelay = %v, want 72h", got)
	}
}

func TestDefaultsValidate(t *testing.T) {
	cfg := loadDefaults(t)

	result := cfg.Validate()
	if !result.Valid() {
		t.Errorf("default config should be valid: %s", result.Summary())
	}
	// eligible_voters defaults to 0, which should warn but not error.
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "eligible_voters") {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning about eligible_voters being unset")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "quorum above one",
			mutate: func(c *Config) { c.Governance.QuorumThreshold = 1.5 },
			want:   "quorum_threshold",
		},
		{
			name:   "negative eligible voters",
			mutate: func(c *Config) { c.Governance.EligibleVoters = -1 },
			want:   "eligible_voters",
		},
		{
			name:   "zero delegation depth",
			mutate: func(c *Config) { c.Governance.MaxDelegationDepth = 0 },
			want:   "max_delegation_depth",
		},
		{
			name:   "zero git timeout",
			mutate: func(c *Config) { c.Git.TimeoutSeconds = 0 },
			want:   "timeout_seconds",
		},
		{
			name:   "empty target branch",
			mutate: func(c *Config) { c.Repo.TargetBranch = "" },
			want:   "target_branch",
		},
		{
			name:   "learning rate above one",
			mutate: func(c *Config) { c.Oracle.LearningRate = 2 },
			want:   "learning_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadDefaults(t)
			tt.mutate(cfg)

			result := cfg.Validate()
			if result.Valid() {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, e := range result.Errors {
				if strings.Contains(e, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an error mentioning %q, got %v", tt.want, result.Errors)
			}
		})
	}
}

func TestConfigOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("governance.quorum_threshold", 0.6)
	viper.Set("governance.eligible_voters", 10)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Governance.QuorumThreshold != 0.6 {
		t.Errorf("quorum_threshold = %v, want 0.6", cfg.Governance.QuorumThreshold)
	}
	if cfg.Governance.EligibleVoters != 10 {
		t.Errorf("eligible_voters = %d, want 10", cfg.Governance.EligibleVoters)
	}
}
