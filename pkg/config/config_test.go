package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/hyperstub/pkg/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	v := NewViper()
	v.Set("schemas", []string{"schema.json"})

	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"schema.json"}, cfg.Schemas)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultControlPort, cfg.ControlPort)
	assert.Equal(t, DefaultControlHost, cfg.ControlHost)
	assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, DefaultIndexCacheSize, cfg.IndexCacheSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.ValidateFactories)
	assert.False(t, cfg.StrictReferences)
	assert.True(t, cfg.ControlEnabled())
	assert.Equal(t, ":4280", cfg.MockAddr())
	assert.Equal(t, "127.0.0.1:4281", cfg.ControlAddr())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "hyperstub.yaml", `
schemas:
  - api/*.json
port: 9000
control_port: 0
validate_factories: true
identity:
  app-setup: id
read_timeout: 5s
log:
  level: debug
  format: json
`)

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"api/*.json"}, cfg.Schemas)
	assert.Equal(t, 9000, cfg.Port)
	assert.False(t, cfg.ControlEnabled())
	assert.True(t, cfg.ValidateFactories)
	assert.Equal(t, map[string]string{"app-setup": "id"}, cfg.Identity)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HYPERSTUB_SCHEMAS", "a.json,b.json")
	t.Setenv("HYPERSTUB_PORT", "8080")
	t.Setenv("HYPERSTUB_LOG_LEVEL", "warn")
	t.Setenv("HYPERSTUB_STRICT_REFERENCES", "true")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"a.json", "b.json"}, cfg.Schemas)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.StrictReferences)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "hyperstub.yaml", "schemas: [schema.json]\nport: 9000\n")
	t.Setenv("HYPERSTUB_PORT", "9100")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Schemas:         []string{"schema.json"},
			Port:            DefaultPort,
			ControlHost:     DefaultControlHost,
			ControlPort:     DefaultControlPort,
			ShutdownTimeout: DefaultShutdownTimeout,
			Log:             LogConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no schemas", mutate: func(c *Config) { c.Schemas = nil }, wantErr: "Schemas: failed required"},
		{name: "empty schema entry", mutate: func(c *Config) { c.Schemas = []string{""} }, wantErr: "Schemas[0]: failed required"},
		{name: "port out of range", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "Port: failed max=65535"},
		{name: "negative control port", mutate: func(c *Config) { c.ControlPort = -1 }, wantErr: "ControlPort: failed min=0"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: "Log.Level: failed oneof"},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "Log.Format: failed oneof"},
		{name: "bad host", mutate: func(c *Config) { c.Host = "not a host" }, wantErr: "Host: failed hostname|ip"},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.ShutdownTimeout = 0 }, wantErr: "ShutdownTimeout: failed gt=0"},
		{
			name: "port collision",
			mutate: func(c *Config) {
				c.ControlHost = c.Host
				c.ControlPort = c.Port
			},
			wantErr: "collides",
		},
		{
			name: "same port on other host",
			mutate: func(c *Config) {
				c.ControlPort = c.Port
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
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

func TestConfig_Logging(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "debug", Format: "json"}}
	lc := cfg.Logging(os.Stderr)
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
	assert.Equal(t, os.Stderr, lc.Output)
}

func TestParsePreload(t *testing.T) {
	p, err := ParsePreload([]byte(`
factories:
  attachment:
    fileName: report.pdf
stubs:
  - method: GET
    path: /account
    status: 206
    body:
      email: stub@example.com
      createdAt: "2012-01-01T12:00:00Z"
  - method: DELETE
    path: /apps/example
`))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"fileName": "report.pdf"}, p.Factories["attachment"])
	require.Len(t, p.Stubs, 2)
	assert.Equal(t, "GET", p.Stubs[0].Method)
	assert.Equal(t, 206, p.Stubs[0].Status)
	assert.Equal(t, map[string]any{
		"email":     "stub@example.com",
		"createdAt": "2012-01-01T12:00:00Z",
	}, p.Stubs[0].Body)
	assert.Equal(t, 0, p.Stubs[1].Status)
	assert.Nil(t, p.Stubs[1].Body)
}

func TestParsePreload_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "syntax", data: "stubs: [", wantErr: "failed to parse preload file"},
		{name: "relative path", data: "stubs:\n  - method: GET\n    path: account\n", wantErr: "Stubs[0].Path: failed startswith=/"},
		{name: "missing method", data: "stubs:\n  - path: /account\n", wantErr: "Stubs[0].Method: failed required"},
		{name: "bad status", data: "stubs:\n  - method: GET\n    path: /a\n    status: 42\n", wantErr: "Stubs[0].Status: failed min=100"},
		{name: "null factory", data: "factories:\n  app:\n", wantErr: "Factories[app]: failed required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePreload([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadPreload_File(t *testing.T) {
	path := writeFile(t, "preload.json", `{"stubs":[{"method":"POST","path":"/apps","body":{"name":"x"}}]}`)
	p, err := LoadPreload(path)
	require.NoError(t, err)
	require.Len(t, p.Stubs, 1)
	assert.Equal(t, map[string]any{"name": "x"}, p.Stubs[0].Body)
}
