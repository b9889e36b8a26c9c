package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads service settings from the given .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ProcessEnv returns the environment handed to the external programs: the
// current process environment with the env template's variables layered on
// top. The template is read, never copied or rewritten.
func (c *Config) ProcessEnv() ([]string, error) {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	if c.Graph.EnvTemplate != "" {
		path := c.Graph.Path(c.Graph.EnvTemplate)
		tmpl, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read env template %s: %w", path, err)
		}
		for k, v := range tmpl {
			vars[k] = v
		}
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env, nil
}
