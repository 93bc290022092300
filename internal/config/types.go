package config

import "time"

// GameConfig describes how to reach the game CLI.
type GameConfig struct {
	Command        string   `json:"command" env:"COMMAND"`
	Args           []string `json:"args,omitempty" env:"ARGS" envSeparator:" "` // Prepended to every command
	Dir            string   `json:"dir,omitempty" env:"DIR"`
	TimeoutSeconds int      `json:"timeout_seconds" env:"TIMEOUT_SECONDS"` // Per command; 0 disables
}

// Timeout returns the per-command timeout.
func (g GameConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// StateConfig locates the SQLite state database.
type StateConfig struct {
	Path string `json:"path" env:"PATH"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `json:"format" env:"FORMAT"` // text or json
}

// RetryConfig bounds retries of read-only game commands.
type RetryConfig struct {
	InitialMillis    int     `json:"initial_ms" env:"INITIAL_MS"`
	MaxMillis        int     `json:"max_ms" env:"MAX_MS"`
	MaxElapsedMillis int     `json:"max_elapsed_ms" env:"MAX_ELAPSED_MS"`
	Multiplier       float64 `json:"multiplier" env:"MULTIPLIER"`
}

// BreakerConfig configures the per-command circuit breakers.
type BreakerConfig struct {
	ConsecutiveFails uint32 `json:"consecutive_fails" env:"CONSECUTIVE_FAILS"`
	OpenSeconds      int    `json:"open_seconds" env:"OPEN_SECONDS"`
	HalfOpenRequests uint32 `json:"half_open_requests" env:"HALF_OPEN_REQUESTS"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `json:"endpoint,omitempty" env:"ENDPOINT"` // OTLP/HTTP collector URL, e.g. http://localhost:4318
	ServiceName string `json:"service_name" env:"SERVICE_NAME"`
}

// Config is the top-level configuration.
type Config struct {
	Game        GameConfig      `json:"game" envPrefix:"GAME_"`
	State       StateConfig     `json:"state" envPrefix:"STATE_"`
	Log         LogConfig       `json:"log" envPrefix:"LOG_"`
	Retry       RetryConfig     `json:"retry" envPrefix:"RETRY_"`
	Breaker     BreakerConfig   `json:"breaker" envPrefix:"BREAKER_"`
	Telemetry   TelemetryConfig `json:"telemetry" envPrefix:"OTEL_"`
	TUI         bool            `json:"tui" env:"TUI"`                   // Show the live monitor during runs
	MeatCeiling int64           `json:"meat_ceiling" env:"MEAT_CEILING"` // Meat above this is closeted during a run; 0 disables
}
