package config

// Index bounds the shape of every tree served by the node.
type Index struct {
	NodeCapacity    int `toml:"NodeCapacity"`
	MaxTagLength    int `toml:"MaxTagLength"`
	MaxStringLength int `toml:"MaxStringLength"`
}

// RateLimit throttles request submission per client address.
type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// Telemetry selects the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
	// Headers is a comma separated key=value list sent with every export.
	Headers string `toml:"Headers"`
}

// Logging controls log verbosity and rotation.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}
