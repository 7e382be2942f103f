package config

import (
	"fmt"

	"dipindex/native/index"
	"dipindex/storage"
)

// Validate rejects configurations the node cannot serve.
func Validate(cfg *Config) error {
	switch cfg.Backend {
	case storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("config: unknown backend %q", cfg.Backend)
	}
	if cfg.Backend != storage.BackendMemory && cfg.DataDir == "" {
		return fmt.Errorf("config: DataDir required for %s backend", cfg.Backend)
	}
	if cfg.Index.NodeCapacity <= 0 {
		return fmt.Errorf("index: NodeCapacity must be positive")
	}
	if cfg.Index.MaxTagLength <= 1 {
		return fmt.Errorf("index: MaxTagLength must allow at least one byte")
	}
	if cfg.Index.MaxStringLength <= 0 {
		return fmt.Errorf("index: MaxStringLength must be positive")
	}
	if cfg.RateLimit.RequestsPerMinute < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	known := make(map[string]struct{}, len(index.Handlers))
	for _, name := range index.Handlers {
		known[name] = struct{}{}
	}
	for _, name := range cfg.PausedHandlers {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("config: cannot pause unknown handler %q", name)
		}
	}
	return nil
}

// IndexParams converts the index section into engine parameters.
func (c *Config) IndexParams() index.Params {
	return index.Params{
		NodeCapacity:    c.Index.NodeCapacity,
		MaxTagLength:    c.Index.MaxTagLength,
		MaxStringLength: c.Index.MaxStringLength,
	}
}
