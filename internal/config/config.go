package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/unitybridge/unitybridge/internal/paths"
)

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Defaults applied when the config file is missing or leaves fields unset.
const (
	DefaultHost          = "127.0.0.1"
	DefaultCommandPort   = 6400
	DefaultStatePort     = 6401
	DefaultReplyBufferMB = 64
)

// Load reads the config file and returns the parsed Config.
// If the config file does not exist, it returns the defaults (no error).
func Load() (*Config, error) {
	return LoadFrom(paths.ConfigFile())
}

// LoadFrom reads and parses a config file at the given path.
func LoadFrom(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(cfg)
	expandConfigEnvVars(cfg)
	return cfg, nil
}

// ExampleConfigPath returns the default config file path (for help messages).
func ExampleConfigPath() string {
	return paths.ConfigFile()
}

func defaultConfig() *Config {
	cfg := &Config{Commands: make(map[string]CommandConfig)}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Editor.Host == "" {
		cfg.Editor.Host = DefaultHost
	}
	if cfg.Editor.CommandPort == 0 {
		cfg.Editor.CommandPort = DefaultCommandPort
	}
	if cfg.Editor.StatePort == 0 {
		cfg.Editor.StatePort = DefaultStatePort
	}
	if cfg.Editor.ReplyBufferMB == 0 {
		cfg.Editor.ReplyBufferMB = DefaultReplyBufferMB
	}
	if cfg.Commands == nil {
		cfg.Commands = make(map[string]CommandConfig)
	}
}

func expandConfigEnvVars(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Editor.Host = expandEnvVars(cfg.Editor.Host)
}

func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}
