package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable applyEnv reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "KG_WORKDIR", "KG_PYTHON", "KG_CONDA", "KG_CONDA_ENV", "KG_BUILD_SCRIPT",
		"KG_ENV_TEMPLATE", "KG_QA_SCRIPT", "KG_RESULT_MODE", "KG_RESULT_FILE",
		"KG_RESULT_DIR", "KG_RESULT_FLAG", "KG_RESULT_FORMAT", "KG_SANITIZE",
		"KG_BUILD_TIMEOUT", "KG_ASK_TIMEOUT", "REDIS_URL", "REDIS_PASSWORD", "REDIS_DB",
		"CACHE_TTL", "DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range keys {
		if old, ok := os.LookupEnv(k); ok {
			require.NoError(t, os.Unsetenv(k))
			t.Cleanup(func() { os.Setenv(k, old) })
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "main", cfg.Graph.WorkDir)
	assert.Equal(t, "kg.py", cfg.Graph.BuildScript)
	assert.Equal(t, ".env.sample", cfg.Graph.EnvTemplate)
	assert.Equal(t, ResultModeUnique, cfg.QA.ResultMode)
	assert.Equal(t, "html_response.txt", cfg.QA.ResultFile)
	assert.True(t, cfg.QA.Sanitize)
	assert.Zero(t, cfg.Graph.BuildTimeout, "builds are unbounded by default")
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadYAMLMergesOverDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "kgstudio.yaml")
	content := `port: "8088"
graph:
  workdir: /srv/kg
  conda_env: createkg
  build_timeout: 45m
qa:
  result_mode: shared
  sanitize: false
  timeout: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.Port)
	assert.Equal(t, "/srv/kg", cfg.Graph.WorkDir)
	assert.Equal(t, "createkg", cfg.Graph.CondaEnv)
	assert.Equal(t, 45*time.Minute, cfg.Graph.BuildTimeout)
	assert.Equal(t, ResultModeShared, cfg.QA.ResultMode)
	assert.False(t, cfg.QA.Sanitize)
	assert.Equal(t, 2*time.Minute, cfg.QA.Timeout)

	// untouched keys keep defaults
	assert.Equal(t, "python", cfg.Graph.Python)
	assert.Equal(t, "qa.py", cfg.QA.Script)
}

func TestLoadMalformedYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("KG_WORKDIR", "/opt/kg")
	t.Setenv("KG_RESULT_FORMAT", FormatMarkdown)
	t.Setenv("KG_RESULT_FLAG", "")
	t.Setenv("KG_ENV_TEMPLATE", "")
	t.Setenv("KG_SANITIZE", "false")
	t.Setenv("KG_ASK_TIMEOUT", "90s")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "/opt/kg", cfg.Graph.WorkDir)
	assert.Equal(t, FormatMarkdown, cfg.QA.ResultFormat)
	assert.Empty(t, cfg.QA.ResultFlag, "an explicitly empty flag is honored")
	assert.Empty(t, cfg.Graph.EnvTemplate)
	assert.False(t, cfg.QA.Sanitize)
	assert.Equal(t, 90*time.Second, cfg.QA.Timeout)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoadInvalidEnvValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad bool", "KG_SANITIZE", "maybe"},
		{"bad int", "REDIS_DB", "zero"},
		{"bad duration", "KG_BUILD_TIMEOUT", "forever"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty port", func(c *Config) { c.Port = "" }, "port"},
		{"unknown mode", func(c *Config) { c.QA.ResultMode = "random" }, "result_mode"},
		{"unique without dir", func(c *Config) { c.QA.ResultDir = "" }, "result_dir"},
		{"shared without file", func(c *Config) {
			c.QA.ResultMode = ResultModeShared
			c.QA.ResultFile = ""
		}, "result_file"},
		{"unknown format", func(c *Config) { c.QA.ResultFormat = "pdf" }, "result_format"},
		{"conda env without conda", func(c *Config) {
			c.Graph.CondaEnv = "createkg"
			c.Graph.Conda = ""
		}, "graph.conda"},
		{"negative timeout", func(c *Config) { c.QA.Timeout = -time.Second }, "negative"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGraphConfigPath(t *testing.T) {
	g := GraphConfig{WorkDir: "main"}
	assert.Equal(t, filepath.Join("main", ".env.sample"), g.Path(".env.sample"))
	assert.Equal(t, "/etc/kg/.env", g.Path("/etc/kg/.env"))
}

func TestProcessEnvLayersTemplate(t *testing.T) {
	dir := t.TempDir()
	template := "OPENAI_API_KEY=sk-test\nNEO4J_URI=neo4j://localhost:7687\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.sample"), []byte(template), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("KEEP=me\n"), 0644))

	t.Setenv("NEO4J_URI", "bolt://overridden")
	t.Setenv("KG_STUDIO_MARKER", "present")

	cfg := DefaultConfig()
	cfg.Graph.WorkDir = dir

	env, err := cfg.ProcessEnv()
	require.NoError(t, err)

	assert.Contains(t, env, "OPENAI_API_KEY=sk-test")
	assert.Contains(t, env, "NEO4J_URI=neo4j://localhost:7687", "template values win over the parent environment")
	assert.Contains(t, env, "KG_STUDIO_MARKER=present")

	// the active config file is never touched
	data, err := os.ReadFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "KEEP=me\n", string(data))
}

func TestProcessEnvMissingTemplate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Graph.WorkDir = t.TempDir()

	_, err := cfg.ProcessEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "env template")
}

func TestProcessEnvWithoutTemplate(t *testing.T) {
	t.Setenv("KG_STUDIO_MARKER", "present")

	cfg := DefaultConfig()
	cfg.Graph.EnvTemplate = ""

	env, err := cfg.ProcessEnv()
	require.NoError(t, err)
	assert.Contains(t, env, "KG_STUDIO_MARKER=present")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("KG_STUDIO_DOTENV=loaded\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("KG_STUDIO_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("KG_STUDIO_DOTENV"))
}
