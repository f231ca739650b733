package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := defaultConfig()
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("Validate(defaults) error = %v", err)
	}
}

func TestValidateRejectsSharedPort(t *testing.T) {
	cfg := validConfig()
	cfg.Editor.StatePort = cfg.Editor.CommandPort

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate accepted identical command and state ports")
	}
	if !strings.Contains(err.Error(), "separate ports") {
		t.Fatalf("error = %v, want mention of separate ports", err)
	}
}

func TestValidateRejectsBadDuration(t *testing.T) {
	cfg := validConfig()
	cfg.Gate.PollInterval = "whenever"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate accepted unparseable poll_interval")
	}
	if !strings.Contains(err.Error(), "gate.poll_interval") {
		t.Fatalf("error = %v, want field name gate.poll_interval", err)
	}
}

func TestValidateJoinsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Editor.Host = ""
	cfg.Editor.ReplyBufferMB = -1
	cfg.Track.MaxAttempts = -3

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate accepted invalid config")
	}
	for _, fragment := range []string{"editor.host", "reply_buffer_mb", "track.max_attempts"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error = %v, missing %q", err, fragment)
		}
	}
}

func TestValidateRejectsPortOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Editor.CommandPort = 70000

	if err := Validate(cfg); err == nil {
		t.Fatal("Validate accepted out-of-range port")
	}
}
