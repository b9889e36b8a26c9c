// Package config loads kg-studio configuration from defaults, an optional YAML
// file and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Result modes for the QA artifact.
const (
	// ResultModeUnique gives every question its own artifact path.
	ResultModeUnique = "unique"
	// ResultModeShared uses one well-known artifact path and serializes questions.
	ResultModeShared = "shared"
)

// Result formats produced by the QA tool.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// GraphConfig describes how the external programs are launched.
type GraphConfig struct {
	// WorkDir is the working directory of both external programs.
	WorkDir string `yaml:"workdir"`

	// Python is the interpreter used to run the scripts.
	Python string `yaml:"python"`

	// Conda is the conda executable, used only when CondaEnv is set.
	Conda string `yaml:"conda"`

	// CondaEnv, when set, runs the interpreter through `conda run -n <env>`.
	CondaEnv string `yaml:"conda_env"`

	// BuildScript is the graph builder, invoked with no arguments.
	BuildScript string `yaml:"build_script"`

	// EnvTemplate is read once at startup, relative to WorkDir, and passed to
	// every child process as environment. Empty disables it.
	EnvTemplate string `yaml:"env_template"`

	// BuildTimeout bounds a graph build (0 = no limit).
	BuildTimeout time.Duration `yaml:"build_timeout"`
}

// QAConfig describes the question answering tool and its result artifact.
type QAConfig struct {
	Script string `yaml:"script"`

	// ResultMode is ResultModeUnique or ResultModeShared.
	ResultMode string `yaml:"result_mode"`

	// ResultFile is the shared artifact, relative to WorkDir.
	ResultFile string `yaml:"result_file"`

	// ResultDir holds per-question artifacts, relative to WorkDir.
	ResultDir string `yaml:"result_dir"`

	// ResultFlag precedes the artifact path on the QA command line in unique
	// mode. Empty passes the path as a bare second argument.
	ResultFlag string `yaml:"result_flag"`

	// ResultFormat is FormatHTML or FormatMarkdown.
	ResultFormat string `yaml:"result_format"`

	// Sanitize runs answers through the HTML allow-list policy.
	Sanitize bool `yaml:"sanitize"`

	// Timeout bounds a single question (0 = no limit).
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig configures the answer cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// DatabaseConfig configures run history. An empty URL disables it.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
}

// Config represents kg-studio configuration options
type Config struct {
	Port     string         `yaml:"port"`
	Graph    GraphConfig    `yaml:"graph"`
	QA       QAConfig       `yaml:"qa"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// DefaultConfig returns a Config matching the layout the builder and QA
// scripts ship with.
func DefaultConfig() *Config {
	return &Config{
		Port: "3000",
		Graph: GraphConfig{
			WorkDir:     "main",
			Python:      "python",
			Conda:       "conda",
			BuildScript: "kg.py",
			EnvTemplate: ".env.sample",
		},
		QA: QAConfig{
			Script:       "qa.py",
			ResultMode:   ResultModeUnique,
			ResultFile:   "html_response.txt",
			ResultDir:    ".responses",
			ResultFlag:   "--output",
			ResultFormat: FormatHTML,
			Sanitize:     true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty or the file does not exist), then
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile decodes the YAML document over the current values, so keys absent
// from the file keep their defaults.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)

	c.Graph.WorkDir = getEnv("KG_WORKDIR", c.Graph.WorkDir)
	c.Graph.Python = getEnv("KG_PYTHON", c.Graph.Python)
	c.Graph.Conda = getEnv("KG_CONDA", c.Graph.Conda)
	c.Graph.CondaEnv = getEnv("KG_CONDA_ENV", c.Graph.CondaEnv)
	c.Graph.BuildScript = getEnv("KG_BUILD_SCRIPT", c.Graph.BuildScript)
	if v, ok := os.LookupEnv("KG_ENV_TEMPLATE"); ok {
		c.Graph.EnvTemplate = v
	}

	c.QA.Script = getEnv("KG_QA_SCRIPT", c.QA.Script)
	c.QA.ResultMode = getEnv("KG_RESULT_MODE", c.QA.ResultMode)
	c.QA.ResultFile = getEnv("KG_RESULT_FILE", c.QA.ResultFile)
	c.QA.ResultDir = getEnv("KG_RESULT_DIR", c.QA.ResultDir)
	if v, ok := os.LookupEnv("KG_RESULT_FLAG"); ok {
		c.QA.ResultFlag = v
	}
	c.QA.ResultFormat = getEnv("KG_RESULT_FORMAT", c.QA.ResultFormat)

	c.Redis.Addr = getEnv("REDIS_URL", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	if v := os.Getenv("KG_SANITIZE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid KG_SANITIZE %q: %w", v, err)
		}
		c.QA.Sanitize = b
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		c.Redis.DB = db
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"KG_BUILD_TIMEOUT", &c.Graph.BuildTimeout},
		{"KG_ASK_TIMEOUT", &c.QA.Timeout},
		{"CACHE_TTL", &c.Redis.TTL},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.Graph.Python == "" {
		return fmt.Errorf("graph.python must not be empty")
	}
	if c.Graph.BuildScript == "" {
		return fmt.Errorf("graph.build_script must not be empty")
	}
	if c.Graph.CondaEnv != "" && c.Graph.Conda == "" {
		return fmt.Errorf("graph.conda must be set when graph.conda_env is %q", c.Graph.CondaEnv)
	}
	if c.Graph.BuildTimeout < 0 || c.QA.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.QA.Script == "" {
		return fmt.Errorf("qa.script must not be empty")
	}

	switch c.QA.ResultMode {
	case ResultModeUnique:
		if c.QA.ResultDir == "" {
			return fmt.Errorf("qa.result_dir must not be empty in %s mode", ResultModeUnique)
		}
	case ResultModeShared:
		if c.QA.ResultFile == "" {
			return fmt.Errorf("qa.result_file must not be empty in %s mode", ResultModeShared)
		}
	default:
		return fmt.Errorf("invalid qa.result_mode %q (want %s or %s)", c.QA.ResultMode, ResultModeUnique, ResultModeShared)
	}

	switch c.QA.ResultFormat {
	case FormatHTML, FormatMarkdown:
	default:
		return fmt.Errorf("invalid qa.result_format %q (want %s or %s)", c.QA.ResultFormat, FormatHTML, FormatMarkdown)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log.format %q", c.Log.Format)
	}
	return nil
}

// Path resolves p against the working directory unless it is absolute.
func (g GraphConfig) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(g.WorkDir, p)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
