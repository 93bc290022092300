package config

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Game: GameConfig{
			Command:        "kolmafia-cli",
			TimeoutSeconds: 120,
		},
		State: StateConfig{
			Path: ".questloop/state.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Retry: RetryConfig{
			InitialMillis:    100,
			MaxMillis:        10_000,
			MaxElapsedMillis: 120_000,
			Multiplier:       2.0,
		},
		Breaker: BreakerConfig{
			ConsecutiveFails: 5,
			OpenSeconds:      30,
			HalfOpenRequests: 3,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "questloop",
		},
	}
}
