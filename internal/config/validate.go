package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks configuration invariants and returns actionable errors.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var errs []error

	if cfg.Editor.Host == "" {
		errs = append(errs, errors.New("editor.host: must not be empty"))
	}
	errs = append(errs, validatePort("editor.command_port", cfg.Editor.CommandPort))
	errs = append(errs, validatePort("editor.state_port", cfg.Editor.StatePort))
	if cfg.Editor.CommandPort == cfg.Editor.StatePort {
		errs = append(errs, fmt.Errorf("editor.command_port and editor.state_port are both %d: the editor serves commands and state on separate ports", cfg.Editor.CommandPort))
	}
	if cfg.Editor.ReplyBufferMB < 1 {
		errs = append(errs, fmt.Errorf("editor.reply_buffer_mb = %d: must be at least 1", cfg.Editor.ReplyBufferMB))
	}

	errs = append(errs, validateDuration("gate.poll_interval", cfg.Gate.PollInterval))
	errs = append(errs, validateDuration("gate.send_timeout", cfg.Gate.SendTimeout))
	if cfg.Gate.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("gate.max_attempts = %d: must not be negative", cfg.Gate.MaxAttempts))
	}

	errs = append(errs, validateDuration("track.initial_delay", cfg.Track.InitialDelay))
	errs = append(errs, validateDuration("track.max_delay", cfg.Track.MaxDelay))
	errs = append(errs, validateDuration("track.overall_timeout", cfg.Track.OverallTimeout))
	if cfg.Track.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("track.max_attempts = %d: must not be negative", cfg.Track.MaxAttempts))
	}

	errs = append(errs, validateDuration("cache.default_ttl", cfg.Cache.DefaultTTL))

	return errors.Join(errs...)
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s = %d: must be between 1 and 65535", field, port)
	}
	return nil
}

func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s = %q: %w", field, value, err)
	}
	if d < 0 {
		return fmt.Errorf("%s = %q: must not be negative", field, value)
	}
	return nil
}

// Duration parses a duration field, falling back when unset or invalid input
// slipped past Validate.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
