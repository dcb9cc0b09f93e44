package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Parley configuration
type Config struct {
	Repo       RepoConfig       `mapstructure:"repo"`
	Governance GovernanceConfig `mapstructure:"governance"`
	Git        GitConfig        `mapstructure:"git"`
	Lock       LockConfig       `mapstructure:"lock"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// RepoConfig identifies the repository the ledger operates on
type RepoConfig struct {
	// Path is the repository root. Empty means the current working directory.
	Path string `mapstructure:"path"`
	// TargetBranch is the branch passed motions are merged into (default: "main")
	TargetBranch string `mapstructure:"target_branch"`
}

// GovernanceConfig controls voting rules
type GovernanceConfig struct {
	// QuorumThreshold is the minimum participation fraction for a valid vote
	// (default: 0.5)
	QuorumThreshold float64 `mapstructure:"quorum_threshold"`
	// EligibleVoters is the number of voters eligible to participate
	EligibleVoters int `mapstructure:"eligible_voters"`
	// MaxDelegationDepth bounds delegation chain resolution (default: 10)
	MaxDelegationDepth int `mapstructure:"max_delegation_depth"`
	// Chair is the identity follow-up tasks are assigned to
	Chair string `mapstructure:"chair"`
	// RetryDelayDays is how far out a lost-quorum vote is rescheduled (default: 3)
	RetryDelayDays int `mapstructure:"retry_delay_days"`
}

// GitConfig controls how git is invoked
type GitConfig struct {
	// TimeoutSeconds bounds every git invocation (default: 30)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LockConfig controls per-motion write locking
type LockConfig struct {
	// StaleAfterMinutes is the age after which an abandoned lock file may be
	// broken (default: 15)
	StaleAfterMinutes int `mapstructure:"stale_after_minutes"`
}

// OracleConfig controls the merge oracle heuristic
type OracleConfig struct {
	// LearningRate scales confidence weight adjustments from feedback
	// (default: 0.1)
	LearningRate float64 `mapstructure:"learning_rate"`
	// BaseConfidence is the starting confidence weight before any feedback
	// (default: 0.55)
	BaseConfidence float64 `mapstructure:"base_confidence"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR
	Level string `mapstructure:"level"`
	// Dir is the log output directory. Empty means stderr.
	Dir string `mapstructure:"dir"`
}

// SetDefaults registers default values for all configuration keys.
// Call this before reading the config file so defaults are available
// even when no file exists.
func SetDefaults() {
	viper.SetDefault("repo.path", "")
	viper.SetDefault("repo.target_branch", "main")

	viper.SetDefault("governance.quorum_threshold", 0.5)
	viper.SetDefault("governance.eligible_voters", 0)
	viper.SetDefault("governance.max_delegation_depth", 10)
	viper.SetDefault("governance.chair", "chair@parley.local")
	viper.SetDefault("governance.retry_delay_days", 3)

	viper.SetDefault("git.timeout_seconds", 30)

	viper.SetDefault("lock.stale_after_minutes", 15)

	viper.SetDefault("oracle.learning_rate", 0.1)
	viper.SetDefault("oracle.base_confidence", 0.55)

	viper.SetDefault("logging.level", "INFO")
	viper.SetDefault("logging.dir", "")
}

// Load unmarshals the current viper state into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GitTimeout returns the configured git timeout as a duration.
func (c *Config) GitTimeout() time.Duration {
	return time.Duration(c.Git.TimeoutSeconds) * time.Second
}

// LockStaleAfter returns the configured lock staleness age as a duration.
func (c *Config) LockStaleAfter() time.Duration {
	return time.Duration(c.Lock.StaleAfterMinutes) * time.Minute
}

// RetryDelay returns the reschedule delay for lost-quorum votes.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Governance.RetryDelayDays) * 24 * time.Hour
}

// ConfigDir returns the directory where the parley config file lives.
// Respects XDG_CONFIG_HOME, falling back to ~/.config/parley.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "parley")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".parley"
	}
	return filepath.Join(home, ".config", "parley")
}
