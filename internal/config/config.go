// Package config resolves kb-plugins settings from defaults, an optional
// config file, KB_PLUGINS_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName names the per-user directories.
	AppName = "kb-plugins"
	// EnvPrefix scopes every environment variable read by kb-plugins.
	EnvPrefix = "KB_PLUGINS"

	configFile = "config.json"
)

// Config is the resolved host configuration handed to the package managers.
type Config struct {
	// NpmRegistry, when set, is passed to both package managers as --registry.
	NpmRegistry string `mapstructure:"npm_registry"`
	// CacheDir is the host cache root; yarn uses CacheDir/yarn.
	CacheDir string `mapstructure:"cache_dir"`
	// DataDir holds the plugin root package.json, node_modules and logs.
	DataDir string `mapstructure:"data_dir"`
	// Root is the CLI install root searched for a bundled node and the
	// pinned package managers.
	Root           string `mapstructure:"root"`
	LogLevel       string `mapstructure:"log_level"`
	PackageManager string `mapstructure:"package_manager"`
	// NetworkMutexPort overrides yarn's default network mutex port (31997).
	NetworkMutexPort string `mapstructure:"network_mutex_port"`
	// UseNetworkMutex switches yarn from a file mutex to a network mutex.
	// From the environment any non-empty value other than false, 0, no or
	// off turns it on.
	UseNetworkMutex bool `mapstructure:"use_network_mutex"`
	Verbose         bool `mapstructure:"verbose"`
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile forces a specific config file. When empty,
	// <user config dir>/kb-plugins/config.json is used if it exists.
	ConfigFile string
	// Flags, if set, override every other source. Flag names use dashes
	// in place of the key underscores (log-level → log_level).
	Flags *pflag.FlagSet
}

var keys = []string{
	"npm_registry",
	"cache_dir",
	"data_dir",
	"root",
	"log_level",
	"package_manager",
	"network_mutex_port",
	"use_network_mutex",
	"verbose",
}

// Load resolves the configuration.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := Defaults()
	v.SetDefault("npm_registry", defaults.NpmRegistry)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("root", defaults.Root)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("package_manager", defaults.PackageManager)
	v.SetDefault("network_mutex_port", defaults.NetworkMutexPort)
	v.SetDefault("use_network_mutex", defaults.UseNetworkMutex)
	v.SetDefault("verbose", defaults.Verbose)

	path := opts.ConfigFile
	if path == "" {
		path = defaultConfigPath()
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if opts.Flags != nil {
		for _, key := range keys {
			f := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.DecodeHookFuncType(stringToBool),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DataDir == "" {
		return nil, errors.New("data directory is not set: use --data-dir or KB_PLUGINS_DATA_DIR")
	}
	return &cfg, nil
}

// stringToBool decodes string values into bool fields without failing on
// words strconv.ParseBool does not know.
func stringToBool(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	return truthy(reflect.ValueOf(data).String()), nil
}

// truthy reports whether an environment-style flag value is set.
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "f", "false", "no", "off":
		return false
	}
	return true
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	cfg := Config{
		LogLevel:       "notice",
		PackageManager: "npm",
	}
	if dir, err := os.UserCacheDir(); err == nil {
		cfg.CacheDir = filepath.Join(dir, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.DataDir = filepath.Join(home, "."+AppName)
	}
	if exe, err := os.Executable(); err == nil {
		// <root>/bin/kb-plugins
		cfg.Root = filepath.Dir(filepath.Dir(exe))
	}
	return cfg
}

// ScopedEnvVarName returns the environment variable name for key.
func ScopedEnvVarName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// ScopedEnvVar returns the value of KB_PLUGINS_<KEY>.
func ScopedEnvVar(key string) string {
	return os.Getenv(ScopedEnvVarName(key))
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, configFile)
}
