// Package configuration loads the settings shared by all product report
// runs. Values are taken from, in order of precedence, command line flags,
// AMPM_ environment variables, a configuration file and built in defaults.
package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ConfigFlag names the flag selecting the configuration file.
	ConfigFlag = "config"
	// EnvPrefix is the prefix of environment variables, e.g.
	// AMPM_HELM_COMMAND for helm-command.
	EnvPrefix = "AMPM"
	// DirectoryName is the directory below the user configuration directory
	// holding config.yaml.
	DirectoryName = "am-package-manager"
)

// Configuration keys. Flags of the same name are bound to them.
const (
	KeyHelmCommand      = "helm-command"
	KeyDockerConfig     = "docker-config"
	KeyConcurrencyLimit = "concurrency-limit"
	KeyPlainHTTP        = "plain-http"
	KeyTempFolder       = "temp-folder"
)

// Keys lists every configuration key.
var Keys = []string{KeyHelmCommand, KeyDockerConfig, KeyConcurrencyLimit, KeyPlainHTTP, KeyTempFolder}

type Config struct {
	// HelmCommand is the helm binary used for rendering.
	HelmCommand string `mapstructure:"helm-command"`
	// DockerConfig is the docker configuration directory or file holding
	// registry credentials.
	DockerConfig string `mapstructure:"docker-config"`
	// ConcurrencyLimit bounds the number of parallel registry lookups.
	ConcurrencyLimit int `mapstructure:"concurrency-limit"`
	// PlainHTTP talks to registries without TLS.
	PlainHTTP bool `mapstructure:"plain-http"`
	// TempFolder is where archives are extracted. Empty means the system
	// default.
	TempFolder string `mapstructure:"temp-folder"`

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		HelmCommand:      "helm",
		DockerConfig:     "~/.docker",
		ConcurrencyLimit: runtime.GOMAXPROCS(0),
	}
}

// DefaultPaths returns the configuration files looked up when no file is
// given explicitly. The first one that exists is read.
//
//   - $XDG_CONFIG_HOME/am-package-manager/config.yaml
//   - $HOME/.am-package-manager.yaml
func DefaultPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, DirectoryName, "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+DirectoryName+".yaml"))
	}
	return paths
}

// Load builds the configuration. If path is empty the DefaultPaths are
// searched, and finding none of them is not an error. Flags in flags named
// like a key override every other source once they were set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	defaults := Defaults()
	v.SetDefault(KeyHelmCommand, defaults.HelmCommand)
	v.SetDefault(KeyDockerConfig, defaults.DockerConfig)
	v.SetDefault(KeyConcurrencyLimit, defaults.ConcurrencyLimit)
	v.SetDefault(KeyPlainHTTP, defaults.PlainHTTP)
	v.SetDefault(KeyTempFolder, defaults.TempFolder)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range Keys {
			if flag := flags.Lookup(key); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %q: %w", key, err)
				}
			}
		}
	}

	if path == "" {
		path = firstExisting(DefaultPaths())
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.DockerConfig = expandHome(cfg.DockerConfig)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values no run can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.HelmCommand == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyHelmCommand))
	}
	if c.ConcurrencyLimit < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyConcurrencyLimit, c.ConcurrencyLimit))
	}
	if c.TempFolder != "" {
		if fi, err := os.Stat(c.TempFolder); err != nil || !fi.IsDir() {
			errs = append(errs, fmt.Errorf("%s %q is not a directory", KeyTempFolder, c.TempFolder))
		}
	}
	return errors.Join(errs...)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path
		}
	}
	return ""
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
