package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	errorsmod "cosmossdk.io/errors"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

const (
	configDir  = "config"
	configFile = "config.json"
)

type Config struct {
	Global GlobalConfig  `yaml:"global" json:"global"`
	Chains []ChainConfig `yaml:"chains" json:"chains"`

	// configPath is the location the config was loaded from
	configPath string `yaml:"-" json:"-"`
}

type GlobalConfig struct {
	Timeout       string `yaml:"timeout" json:"timeout"`
	MaxInFlight   int64  `yaml:"max-in-flight" json:"max-in-flight"`
	ProbeAttempts uint   `yaml:"probe-attempts" json:"probe-attempts"`
	ProbeInterval string `yaml:"probe-interval" json:"probe-interval"`
}

// ChainConfig is the config of one chain. Config is decoded by the module whose name equals Type.
type ChainConfig struct {
	Type   string          `yaml:"type" json:"type"`
	Config json.RawMessage `yaml:"config" json:"config"`
}

func DefaultConfig() Config {
	return Config{
		Global: newDefaultGlobalConfig(),
		Chains: []ChainConfig{},
	}
}

// newDefaultGlobalConfig returns a global config with defaults set
func newDefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Timeout:       "10s",
		MaxInFlight:   8,
		ProbeAttempts: 5,
		ProbeInterval: "1s",
	}
}

// DefaultConfigPath returns the location of the config file under homePath
func DefaultConfigPath(homePath string) string {
	return filepath.Join(homePath, configDir, configFile)
}

func (c GlobalConfig) Validate() error {
	var errs []error
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("config attribute \"timeout\" is invalid: %v", err))
	}
	if _, err := time.ParseDuration(c.ProbeInterval); err != nil {
		errs = append(errs, fmt.Errorf("config attribute \"probe-interval\" is invalid: %v", err))
	}
	if c.MaxInFlight < 0 {
		errs = append(errs, fmt.Errorf("config attribute \"max-in-flight\" is negative: %d", c.MaxInFlight))
	}
	if c.ProbeAttempts == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"probe-attempts\" is zero"))
	}
	return errors.Join(errs...)
}

func (c GlobalConfig) timeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

func (c GlobalConfig) probeInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProbeInterval)
	return d
}

// NewChainConfig marshals a module config into a ChainConfig of the given type
func NewChainConfig(typ string, cfg core.ChainConfig) (ChainConfig, error) {
	bz, err := json.Marshal(cfg)
	if err != nil {
		return ChainConfig{}, err
	}
	return ChainConfig{Type: typ, Config: bz}, nil
}

// AddChain appends a chain config
func (c *Config) AddChain(cc ChainConfig) {
	c.Chains = append(c.Chains, cc)
}

// Decode decodes the chain config with the module selected by its type
func (cc ChainConfig) Decode(modules []ModuleI) (core.ChainConfig, error) {
	m, err := findModule(modules, cc.Type)
	if err != nil {
		return nil, err
	}
	cfg := m.NewChainConfig()
	if err := json.Unmarshal(cc.Config, cfg); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "failed to decode %s chain config: %v", cc.Type, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "invalid %s chain config: %v", cc.Type, err)
	}
	return cfg, nil
}

// LoadConfig reads the config file at path
func LoadConfig(path string) (*Config, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := UnmarshalJSON(bz, &cfg); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "failed to parse config file %s: %v", path, err)
	}
	cfg.configPath = path
	return &cfg, nil
}

// Save writes the config to the path it was loaded from, or to path when it was built in memory
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.configPath
	}
	if path == "" {
		return fmt.Errorf("config path is not set")
	}
	bz, err := MarshalJSON(*c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	if err := os.WriteFile(path, bz, 0600); err != nil {
		return err
	}
	c.configPath = path
	return nil
}
