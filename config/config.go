package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"dipindex/crypto"
	"dipindex/storage"
)

type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	Backend      string `toml:"Backend"`
	Environment  string `toml:"Environment"`
	KeystorePath string `toml:"KeystorePath"`
	// VoteMintSeed names the vote token mint bootstrapped on first start. The
	// operator key is its mint authority.
	VoteMintSeed   string   `toml:"VoteMintSeed"`
	PausedHandlers []string `toml:"PausedHandlers"`

	Index     Index     `toml:"index"`
	RateLimit RateLimit `toml:"rate_limit"`
	Telemetry Telemetry `toml:"telemetry"`
	Logging   Logging   `toml:"logging"`
}

// Default returns the configuration written on first start.
func Default() *Config {
	return &Config{
		RPCAddress:   ":8080",
		DataDir:      "./dip-data",
		Backend:      storage.BackendLevelDB,
		Environment:  "local",
		VoteMintSeed: "vote",
		Index: Index{
			NodeCapacity:    8,
			MaxTagLength:    32,
			MaxStringLength: 200,
		},
		RateLimit: RateLimit{RequestsPerMinute: 600, Burst: 20},
		Telemetry: Telemetry{Endpoint: "localhost:4318", Insecure: true},
		Logging:   Logging{Level: "info"},
	}
}

// Option customises Load.
type Option func(*loadOptions)

type loadOptions struct {
	passphrase func() (string, error)
}

// WithKeystorePassphraseSource encrypts a freshly generated operator keystore
// with the passphrase returned by source. Without it the keystore is written
// with an empty passphrase.
func WithKeystorePassphraseSource(source func() (string, error)) Option {
	return func(o *loadOptions) {
		o.passphrase = source
	}
}

// Load loads the configuration from the given path, writing the defaults and
// an operator keystore when the file does not exist yet.
func Load(path string, opts ...Option) (*Config, error) {
	options := &loadOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path, options)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.PausedHandlers == nil {
		cfg.PausedHandlers = []string{}
	}
	if err := ensureKeystore(path, cfg, options); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ensureKeystore(configPath string, cfg *Config, options *loadOptions) error {
	keystorePath := cfg.KeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		passphrase := ""
		if options.passphrase != nil {
			if passphrase, err = options.passphrase(); err != nil {
				return err
			}
		}
		if err := crypto.SaveToKeystore(keystorePath, key, passphrase); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.KeystorePath != keystorePath {
		cfg.KeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string, options *loadOptions) (*Config, error) {
	cfg := Default()
	cfg.PausedHandlers = []string{}
	if err := ensureKeystore(path, cfg, options); err != nil {
		return nil, err
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "operator.keystore")
}
