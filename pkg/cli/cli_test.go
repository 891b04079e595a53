package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/hyperstub/internal/fixtures"
	"github.com/getmockd/hyperstub/pkg/synth"
)

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, fixtures.Heroku, 0o644))
	return path
}

func execute(t *testing.T, a *app, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCommand(a)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRoutes(t *testing.T) {
	schemaPath := writeSchema(t)

	t.Run("table", func(t *testing.T) {
		out, _, err := execute(t, &app{}, "routes", schemaPath)
		require.NoError(t, err)
		assert.Contains(t, out, "METHOD")
		assert.Contains(t, out, "/account")
		assert.Contains(t, out, "build-result")
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := execute(t, &app{}, "routes", "--json", "--schema", schemaPath)
		require.NoError(t, err)

		var routes []synth.Route
		require.NoError(t, json.Unmarshal([]byte(out), &routes))
		require.Len(t, routes, 16)
		assert.Equal(t, "account", routes[0].Definition)
		assert.Equal(t, "GET", routes[0].Method)
		assert.Equal(t, "/account", routes[0].Href)
	})
}

func TestRoutes_NoSchema(t *testing.T) {
	_, _, err := execute(t, &app{}, "routes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Schemas: failed")
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out, _, err := execute(t, &app{}, "validate", writeSchema(t))
		require.NoError(t, err)
		assert.Contains(t, out, "Schema OK: 8 definitions, 16 routes")
	})

	t.Run("broken references", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
definitions:
  widget:
    definitions:
      name:
        example: gear
    properties:
      name:
        $ref: "#/definitions/widget/definitions/name"
      size:
        $ref: "#/definitions/widget/definitions/size"
      owner:
        $ref: "#/definitions/person/definitions/id"
    links:
      - method: GET
        href: /widgets
`), 0o644))

		out, _, err := execute(t, &app{}, "validate", "--json", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 problem(s)")

		var res ValidateResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.False(t, res.Valid)
		assert.Equal(t, 1, res.Definitions)
		assert.Equal(t, 1, res.Routes)
		require.Len(t, res.Errors, 2)
		assert.Contains(t, res.Errors[0], "widget.size")
		assert.Contains(t, res.Errors[1], "widget.owner")
	})
}

func TestFactory(t *testing.T) {
	schemaPath := writeSchema(t)

	t.Run("examples", func(t *testing.T) {
		out, _, err := execute(t, &app{}, "factory", "region", schemaPath)
		require.NoError(t, err)

		var obj map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &obj))
		assert.Equal(t, "us", obj["name"])
	})

	t.Run("custom properties", func(t *testing.T) {
		out, _, err := execute(t, &app{}, "factory", "app", schemaPath,
			"--data", `{"region":{"name":"eu"}}`,
			"--set", "name=demo",
			"--set", "maintenance=true",
		)
		require.NoError(t, err)

		var obj map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &obj))
		assert.Equal(t, "demo", obj["name"])
		assert.Equal(t, true, obj["maintenance"])
		region := obj["region"].(map[string]any)
		assert.Equal(t, "eu", region["name"])
		assert.NotEmpty(t, region["id"])
	})

	t.Run("validation", func(t *testing.T) {
		_, stderr, err := execute(t, &app{}, "factory", "app", schemaPath, "--validate", "--set", "maintenance=sometimes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid factory")
		assert.Contains(t, stderr, "maintenance")
	})

	t.Run("unknown definition", func(t *testing.T) {
		_, _, err := execute(t, &app{}, "factory", "nope", schemaPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown definition")
	})

	t.Run("preloaded definition", func(t *testing.T) {
		preload := filepath.Join(t.TempDir(), "preload.yaml")
		require.NoError(t, os.WriteFile(preload, []byte("factories:\n  attachment:\n    fileName: report.pdf\n"), 0o644))

		out, _, err := execute(t, &app{}, "factory", "attachment", schemaPath, "--preload", preload, "--set", "size=3")
		require.NoError(t, err)
		var obj map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &obj))
		assert.Equal(t, map[string]any{"fileName": "report.pdf", "size": float64(3)}, obj)
	})

	t.Run("bad assignment", func(t *testing.T) {
		_, _, err := execute(t, &app{}, "factory", "app", schemaPath, "--set", "broken")
		assert.ErrorContains(t, err, "expected key=value")
	})
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, &app{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hyperstub ")

	out, _, err = execute(t, &app{}, "version", "--json")
	require.NoError(t, err)
	var v VersionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.NotEmpty(t, v.Go)
}

func TestServe(t *testing.T) {
	schemaPath := writeSchema(t)
	preload := filepath.Join(t.TempDir(), "preload.yaml")
	require.NoError(t, os.WriteFile(preload, []byte(`
stubs:
  - method: get
    path: /account
    status: 206
    body:
      email: stub@example.com
`), 0o644))

	type addrs struct{ mock, control net.Addr }
	ready := make(chan addrs, 1)
	a := &app{onReady: func(mock, control net.Addr) { ready <- addrs{mock, control} }}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := newRootCommand(a)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{
		"serve", schemaPath,
		"--host", "127.0.0.1",
		"--port", "0",
		"--control-port", strconv.Itoa(freePort(t)),
		"--preload", preload,
		"--metrics",
		"--log-level", "error",
	})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	var got addrs
	select {
	case got = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not become ready")
	}
	require.NotNil(t, got.control)

	mockURL := "http://" + got.mock.String()
	controlURL := "http://" + got.control.String()

	resp, err := http.Get(mockURL + "/apps/demo")
	require.NoError(t, err)
	var obj map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&obj))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "demo", obj["name"])

	resp, err = http.Get(mockURL + "/account")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)

	resp, err = http.Get(controlURL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(controlURL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "hyperstub_requests_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServe_InvalidSchema(t *testing.T) {
	_, _, err := execute(t, &app{}, "serve", filepath.Join(t.TempDir(), "missing-*.json"), "--port", "0", "--control-port", "0")
	require.Error(t, err)
}
