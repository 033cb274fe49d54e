package config

import "time"

// RotationConfig parameterizes the rotation surfaces: the CLI's defaults,
// the optional in-process runner, and notification delivery.
type RotationConfig struct {
	// DefaultProvider is used when the CLI is invoked without --provider.
	DefaultProvider string `mapstructure:"default_provider" validate:"required"`

	// DefaultFrequency seeds new schedules created without an explicit
	// --frequency.
	DefaultFrequency string `mapstructure:"default_frequency" validate:"required,rotation_frequency"`

	Runner RunnerConfig `mapstructure:"runner"`

	// WebhookTimeout bounds one notification delivery attempt.
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

// RunnerConfig controls the in-process rotation poller. Disabled by
// default; external cron invoking the CLI is the primary path.
type RunnerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}
