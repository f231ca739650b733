package config

// Config is the top-level unitybridge configuration.
type Config struct {
	Editor   EditorConfig             `toml:"editor"`
	Gate     GateConfig               `toml:"gate"`
	Track    TrackConfig              `toml:"track"`
	Cache    CacheConfig              `toml:"cache"`
	Commands map[string]CommandConfig `toml:"commands"`
}

// EditorConfig describes how to reach the editor's bridge plugin.
type EditorConfig struct {
	Host          string `toml:"host"`
	CommandPort   int    `toml:"command_port"`
	StatePort     int    `toml:"state_port"`
	ReplyBufferMB int    `toml:"reply_buffer_mb"`
}

// GateConfig tunes the state-gated dispatch loop.
type GateConfig struct {
	PollInterval string `toml:"poll_interval"`
	MaxAttempts  int    `toml:"max_attempts"`
	SendTimeout  string `toml:"send_timeout"`
}

// TrackConfig tunes long-operation sentinel polling.
type TrackConfig struct {
	InitialDelay   string `toml:"initial_delay"`
	MaxDelay       string `toml:"max_delay"`
	MaxAttempts    int    `toml:"max_attempts"`
	OverallTimeout string `toml:"overall_timeout"`
}

// CacheConfig controls response caching for read-only commands.
type CacheConfig struct {
	DefaultTTL      string   `toml:"default_ttl"`
	NoCacheCommands []string `toml:"no_cache_commands"`
}

// CommandConfig holds per-command overrides.
type CommandConfig struct {
	Cache *bool `toml:"cache"`
}
