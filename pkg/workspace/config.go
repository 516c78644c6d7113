package workspace

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/monopy/pkg/errors"
)

// ConfigFile is the workspace configuration file name.
const ConfigFile = "monopy.yaml"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheMongo = "mongo"
	CacheNone  = "none"
)

// Config is the monopy.yaml workspace configuration.
type Config struct {
	Version int    `yaml:"version"`
	AppsDir string `yaml:"appsDir,omitempty"`
	LibsDir string `yaml:"libsDir,omitempty"`

	// Poetry is the package manager executable (name or path).
	Poetry string `yaml:"poetry,omitempty"`

	// EnvFile is a dotenv file overlaid on the process environment for
	// package manager invocations. Relative to the workspace root.
	EnvFile string `yaml:"envFile,omitempty"`

	Build BuildConfig `yaml:"build,omitempty"`
	Cache CacheConfig `yaml:"cache,omitempty"`
	Serve ServeConfig `yaml:"serve,omitempty"`
}

// BuildConfig configures package builds.
type BuildConfig struct {
	// IgnorePaths are project-relative paths left out of staging trees in
	// addition to the built-in ignore set.
	IgnorePaths []string `yaml:"ignorePaths,omitempty"`

	// OutputDir receives built artifacts, one subdirectory per project.
	// Relative to the workspace root.
	OutputDir string `yaml:"outputDir,omitempty"`
}

// CacheConfig selects the build cache backend.
type CacheConfig struct {
	Backend       string        `yaml:"backend,omitempty"`
	Dir           string        `yaml:"dir,omitempty"`
	RedisAddr     string        `yaml:"redisAddr,omitempty"`
	MongoURI      string        `yaml:"mongoURI,omitempty"`
	MongoDatabase string        `yaml:"mongoDatabase,omitempty"`
	TTL           time.Duration `yaml:"ttl,omitempty"`
}

// ServeConfig configures the HTTP inspector.
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// DefaultConfig returns the configuration used when monopy.yaml is absent.
func DefaultConfig() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.AppsDir == "" {
		c.AppsDir = "apps"
	}
	if c.LibsDir == "" {
		c.LibsDir = "libs"
	}
	if c.Poetry == "" {
		c.Poetry = "poetry"
	}
	if c.EnvFile == "" {
		c.EnvFile = ".env"
	}
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = "dist"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheFile
	}
	if c.Cache.MongoDatabase == "" {
		c.Cache.MongoDatabase = "monopy"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 7 * 24 * time.Hour
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":7070"
	}
}

// LoadConfig reads monopy.yaml from root. A missing file yields DefaultConfig.
func LoadConfig(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, ConfigFile))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", ConfigFile)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates monopy.yaml content.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", ConfigFile)
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig validates cfg and writes it to root/monopy.yaml.
func SaveConfig(root string, cfg *Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "marshal %s", ConfigFile)
	}
	if err := renameio.WriteFile(filepath.Join(root, ConfigFile), data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", ConfigFile)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Version != 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "unsupported config version: %d (expected 1)", c.Version)
	}
	for label, p := range map[string]string{
		"appsDir":         c.AppsDir,
		"libsDir":         c.LibsDir,
		"envFile":         c.EnvFile,
		"build.outputDir": c.Build.OutputDir,
	} {
		if err := validateRelPath(p, label); err != nil {
			return err
		}
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redisAddr is required for the redis backend")
		}
	case CacheMongo:
		if c.Cache.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.mongoURI is required for the mongo backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

func validateRelPath(p, label string) error {
	if filepath.IsAbs(p) {
		return errors.New(errors.ErrCodeInvalidConfig, "%s must be relative to the workspace root: %s", label, p)
	}
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New(errors.ErrCodeInvalidConfig, "%s must stay inside the workspace: %s", label, p)
	}
	return nil
}
