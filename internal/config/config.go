// Package config loads lydata settings from defaults, an optional config
// file and LYDATA_* environment variables, in increasing precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config holds every setting the CLI reads.
type Config struct {
	// DataDir is searched for {year}-{institution}-{subsite}/data.csv.
	DataDir string `mapstructure:"data_dir"`
	// Repo and Revision template the remote fallback URL.
	Repo     string `mapstructure:"repo"`
	Revision string `mapstructure:"revision"`
	// Database is the SQLite file imported datasets are stored in.
	Database string `mapstructure:"database"`

	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	// ModalitiesFile overrides the default modality table when set.
	ModalitiesFile string `mapstructure:"modalities_file"`
	// SkipDisk forces every load through the remote fetcher.
	SkipDisk bool `mapstructure:"skip_disk"`
}

// EnvPrefix prefixes every environment override, e.g. LYDATA_DATA_DIR.
const EnvPrefix = "LYDATA"

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".")
	v.SetDefault("repo", "rmnldwg/lydata")
	v.SetDefault("revision", "main")
	v.SetDefault("database", "lydata.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("modalities_file", "")
	v.SetDefault("skip_disk", false)
}

// NewViper returns a viper instance with defaults and environment binding.
// If path is empty, lydata.yaml is looked up in the working directory and
// the user config directory; a missing file is not an error. An explicit
// path must exist.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		return v, nil
	}

	v.SetConfigName("lydata")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "lydata"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}
	return v, nil
}

// FromViper decodes and checks the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load is NewViper followed by FromViper.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Validate rejects settings no command could work with.
func (c *Config) Validate() error {
	if strings.Count(c.Repo, "/") != 1 {
		return errors.Newf("repo %q must look like owner/name", c.Repo)
	}
	if c.Revision == "" {
		return errors.New("revision is empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf("unknown log level %q", c.LogLevel)
	}
	return nil
}
