package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that override config keys,
// e.g. PROVISION_MAINTENANCE_DEPLOY_TIMEOUT.
const EnvPrefix = "PROVISION"

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type Store struct {
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`
}

type Maintenance struct {
	ApplicationInterval time.Duration `mapstructure:"application_interval" yaml:"application_interval"`
	DeployTimeout       time.Duration `mapstructure:"deploy_timeout" yaml:"deploy_timeout"`
	LockTimeout         time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout"`
	// Disabled lists maintenance jobs that must not run.
	Disabled []string `mapstructure:"disabled" yaml:"disabled"`
}

type Config struct {
	DataDir     string      `mapstructure:"data_dir" yaml:"data_dir"`
	Hostname    string      `mapstructure:"hostname" yaml:"hostname"`
	FlavorsFile string      `mapstructure:"flavors_file" yaml:"flavors_file"`
	Log         Log         `mapstructure:"log" yaml:"log"`
	Store       Store       `mapstructure:"store" yaml:"store"`
	Maintenance Maintenance `mapstructure:"maintenance" yaml:"maintenance"`
}

func Default() *Config {
	hostname, _ := os.Hostname()
	return &Config{
		DataDir:     defaultDataDir(),
		Hostname:    hostname,
		FlavorsFile: "flavors.yaml",
		Log:         Log{Level: "info", Format: "text"},
		Maintenance: Maintenance{
			ApplicationInterval: 30 * time.Minute,
			DeployTimeout:       30 * time.Minute,
			LockTimeout:         10 * time.Second,
			Disabled:            []string{},
		},
	}
}

func defaultDataDir() string {
	// prefer /var/lib/provision if /var/lib exists
	if st, err := os.Stat("/var/lib"); err == nil && st.IsDir() {
		return "/var/lib/provision"
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return "./data"
	}
	return filepath.Join(home, ".provision")
}

// Validate checks that the config can be used to start the daemon.
func (c *Config) Validate() error {
	if c.DataDir == "" && !c.Store.InMemory {
		return fmt.Errorf("data_dir is required unless store.in_memory is set")
	}
	if c.Hostname == "" {
		return fmt.Errorf("hostname is required")
	}
	if c.Maintenance.ApplicationInterval <= 0 {
		return fmt.Errorf("maintenance.application_interval must be positive, got %s", c.Maintenance.ApplicationInterval)
	}
	if c.Maintenance.DeployTimeout <= 0 {
		return fmt.Errorf("maintenance.deploy_timeout must be positive, got %s", c.Maintenance.DeployTimeout)
	}
	if c.Maintenance.LockTimeout < 0 {
		return fmt.Errorf("maintenance.lock_timeout must not be negative, got %s", c.Maintenance.LockTimeout)
	}
	return nil
}

// Load reads the config file at path, or provision.yaml from the working
// directory or /etc/provision when path is empty. A missing default file is
// not an error. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("provision")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")               // Local development override
		v.AddConfigPath("/etc/provision/") // System-wide production config
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := decode(v.AllSettings(), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so that environment variables are seen
// for keys absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("hostname", cfg.Hostname)
	v.SetDefault("flavors_file", cfg.FlavorsFile)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("store.in_memory", cfg.Store.InMemory)
	v.SetDefault("maintenance.application_interval", cfg.Maintenance.ApplicationInterval.String())
	v.SetDefault("maintenance.deploy_timeout", cfg.Maintenance.DeployTimeout.String())
	v.SetDefault("maintenance.lock_timeout", cfg.Maintenance.LockTimeout.String())
	v.SetDefault("maintenance.disabled", cfg.Maintenance.Disabled)
}

func decode(settings map[string]interface{}, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(settings)
}
