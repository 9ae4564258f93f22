package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dl-alexandre/rcache/internal/reconcile"
	"github.com/dl-alexandre/rcache/internal/types"
	"github.com/dl-alexandre/rcache/internal/utils"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.toml"
	// StateFileName is the sqlite database holding pools, directives and audit runs
	StateFileName = "state.db"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "RCACHE_"
)

// Config holds application configuration
type Config struct {
	// Backend selects the HDFS access method (cacheadmin, webhdfs, local)
	Backend string `toml:"backend" json:"backend"`

	// HDFSBinary is the Hadoop launcher used by the cacheadmin backend
	HDFSBinary string `toml:"hdfsBinary" json:"hdfsBinary"`

	// WebHDFSURL is the NameNode HTTP address, e.g. http://namenode:9870
	WebHDFSURL  string `toml:"webhdfsURL" json:"webhdfsURL"`
	WebHDFSUser string `toml:"webhdfsUser" json:"webhdfsUser"`

	// OAuth2 client credentials for WebHDFS; the secret lives in the keyring
	OAuthClientID string   `toml:"oauthClientID" json:"oauthClientID"`
	OAuthTokenURL string   `toml:"oauthTokenURL" json:"oauthTokenURL"`
	OAuthScopes   []string `toml:"oauthScopes" json:"oauthScopes"`

	// LocalRoot is the directory served by the local backend as "/"
	LocalRoot string `toml:"localRoot" json:"localRoot"`

	// StateDB is the sqlite file for audit history and local directives
	StateDB string `toml:"stateDB" json:"stateDB"`

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string `toml:"logLevel" json:"logLevel"`
	LogFile  string `toml:"logFile" json:"logFile"`

	// OutputFormat is the default output format (text, json, table)
	OutputFormat types.OutputFormat `toml:"outputFormat" json:"outputFormat"`

	// CommandTimeout bounds every command, in seconds
	CommandTimeout int `toml:"commandTimeout" json:"commandTimeout"`

	// MetricsTextfile, when set, receives Prometheus metrics after each run
	MetricsTextfile string `toml:"metricsTextfile" json:"metricsTextfile"`

	// Exclude holds extra gitignore-style patterns skipped on submit
	Exclude         []string `toml:"exclude" json:"exclude"`
	ExcludeDefaults bool     `toml:"excludeDefaults" json:"excludeDefaults"`

	ResyncPolicy       string `toml:"resyncPolicy" json:"resyncPolicy"`
	ReportEmptySide    bool   `toml:"reportEmptySide" json:"reportEmptySide"`
	DefaultReplication int    `toml:"defaultReplication" json:"defaultReplication"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Backend:            utils.BackendCacheAdmin,
		HDFSBinary:         "hdfs",
		LogLevel:           "normal",
		OutputFormat:       types.OutputFormatText,
		CommandTimeout:     utils.DefaultCommandTimeoutSeconds,
		ResyncPolicy:       string(reconcile.PolicyOrdered),
		DefaultReplication: utils.DefaultReplication,
	}
}

// Load loads configuration with precedence: env vars > config file > defaults.
// An empty path means the default location, which may be absent; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadFromFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile decodes TOML, or JSON when the file ends in .json
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(c)
	}

	md, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// loadFromEnv overrides fields from RCACHE_* variables
func (c *Config) loadFromEnv() error {
	str := map[string]*string{
		"BACKEND":          &c.Backend,
		"HDFS_BINARY":      &c.HDFSBinary,
		"WEBHDFS_URL":      &c.WebHDFSURL,
		"WEBHDFS_USER":     &c.WebHDFSUser,
		"OAUTH_CLIENT_ID":  &c.OAuthClientID,
		"OAUTH_TOKEN_URL":  &c.OAuthTokenURL,
		"LOCAL_ROOT":       &c.LocalRoot,
		"STATE_DB":         &c.StateDB,
		"LOG_LEVEL":        &c.LogLevel,
		"LOG_FILE":         &c.LogFile,
		"METRICS_TEXTFILE": &c.MetricsTextfile,
		"RESYNC_POLICY":    &c.ResyncPolicy,
	}
	for name, field := range str {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*field = v
		}
	}

	if v := os.Getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		c.OutputFormat = types.OutputFormat(v)
	}
	if v := os.Getenv(EnvPrefix + "OAUTH_SCOPES"); v != "" {
		c.OAuthScopes = splitList(v)
	}
	if v := os.Getenv(EnvPrefix + "EXCLUDE"); v != "" {
		c.Exclude = splitList(v)
	}
	if v := os.Getenv(EnvPrefix + "EXCLUDE_DEFAULTS"); v != "" {
		c.ExcludeDefaults = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "REPORT_EMPTY_SIDE"); v != "" {
		c.ReportEmptySide = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "COMMAND_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCOMMAND_TIMEOUT: %w", EnvPrefix, err)
		}
		c.CommandTimeout = n
	}
	if v := os.Getenv(EnvPrefix + "DEFAULT_REPLICATION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sDEFAULT_REPLICATION: %w", EnvPrefix, err)
		}
		c.DefaultReplication = n
	}
	return nil
}

// Save writes the configuration as TOML to path, or to the default
// location when path is empty
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if strings.EqualFold(filepath.Ext(path), ".json") {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	} else if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Backend {
	case utils.BackendCacheAdmin:
		if c.HDFSBinary == "" {
			return fmt.Errorf("hdfsBinary is required for the %s backend", c.Backend)
		}
	case utils.BackendWebHDFS:
		if c.WebHDFSURL == "" {
			return fmt.Errorf("webhdfsURL is required for the %s backend", c.Backend)
		}
		if c.HDFSBinary == "" {
			return fmt.Errorf("hdfsBinary is required for the %s backend", c.Backend)
		}
	case utils.BackendLocal:
		if c.LocalRoot == "" {
			return fmt.Errorf("localRoot is required for the %s backend", c.Backend)
		}
	default:
		return fmt.Errorf("invalid backend: %q (must be %s, %s or %s)", c.Backend,
			utils.BackendCacheAdmin, utils.BackendWebHDFS, utils.BackendLocal)
	}

	if (c.OAuthClientID == "") != (c.OAuthTokenURL == "") {
		return fmt.Errorf("oauthClientID and oauthTokenURL must be set together")
	}

	if !c.OutputFormat.Valid() {
		return fmt.Errorf("invalid output format: %s (must be 'text', 'json' or 'table')", c.OutputFormat)
	}

	if c.CommandTimeout < 1 || c.CommandTimeout > 86400 {
		return fmt.Errorf("command timeout must be between 1 and 86400 seconds, got: %d", c.CommandTimeout)
	}

	if c.DefaultReplication < 1 || c.DefaultReplication > utils.MaxReplication {
		return fmt.Errorf("default replication must be between 1 and %d, got: %d", utils.MaxReplication, c.DefaultReplication)
	}

	if _, err := reconcile.ParsePolicy(c.ResyncPolicy); err != nil {
		return err
	}

	switch c.LogLevel {
	case "quiet", "normal", "verbose", "debug":
	default:
		return fmt.Errorf("invalid log level: %q (must be quiet, normal, verbose or debug)", c.LogLevel)
	}

	return nil
}

// GetCommandTimeout returns the command timeout as a duration
func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}

// StatePath returns the configured state database, or state.db in the
// config directory
func (c *Config) StatePath() (string, error) {
	if c.StateDB != "" {
		return c.StateDB, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, StateFileName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "rcache"), nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
