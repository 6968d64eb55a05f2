package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	cmd := BuildCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestValidate_RepositoryFiles(t *testing.T) {
	out, err := execute(t, "validate", "--nginx-conf", "../web/nginx.conf", "-f", "../docker-compose.yml", "--strict")
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS nginx: gzip enabled")
	assert.NotContains(t, out, "FAIL")
	assert.Contains(t, out, "Failed: 0")
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", "--nginx-conf", filepath.Join(t.TempDir(), "nginx.conf"), "-f", "../docker-compose.yml")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrChecksFailed)
}

func TestValidate_FailingRules(t *testing.T) {
	dir := t.TempDir()
	nginx := filepath.Join(dir, "nginx.conf")
	require.NoError(t, os.WriteFile(nginx, []byte("server {\n    listen 80;\n}\n"), 0o600))

	out, err := execute(t, "validate", "--nginx-conf", nginx, "-f", "../docker-compose.yml")
	assert.ErrorIs(t, err, ErrChecksFailed)
	assert.Contains(t, out, "PASS nginx: listen directive")
	assert.Contains(t, out, "FAIL nginx: gzip enabled")
}

func TestProbe_Simulated(t *testing.T) {
	metricsFile := filepath.Join(t.TempDir(), "sitecheck.prom")
	out, err := execute(t, "probe", "--simulate-probes", "--seed", "11", "--iterations", "150", "--metrics-file", metricsFile)
	require.NoError(t, err, out)
	assert.Contains(t, out, "seed 11, 150 probes")
	assert.Contains(t, out, "200 OK")
	assert.Contains(t, out, "PASS accessibility rate")

	b, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), "sitecheck_probe_success_ratio 1")
	assert.Contains(t, string(b), `sitecheck_assertions{result="passed"} 1`)
}

func TestProbe_IterationsFromEnvironment(t *testing.T) {
	t.Setenv("ITERATIONS", "123")
	out, err := execute(t, "probe", "--simulate-probes", "--seed", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "123 probes")
}

func TestProbe_InvalidConfig(t *testing.T) {
	_, err := execute(t, "probe", "--simulate-probes", "--iterations", "10")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrChecksFailed)
}

func TestProbe_Unreachable(t *testing.T) {
	out, err := execute(t, "probe", "--base-url", fmt.Sprintf("http://127.0.0.1:%d", freePort(t)), "--seed", "2")
	assert.ErrorIs(t, err, ErrChecksFailed)
	assert.Contains(t, out, "FAIL accessibility rate")
}

func TestProbe_UnreachableVerboseListsFailures(t *testing.T) {
	out, err := execute(t, "probe", "-v", "--base-url", fmt.Sprintf("http://127.0.0.1:%d", freePort(t)), "--seed", "2", "--iterations", "120")
	assert.ErrorIs(t, err, ErrChecksFailed)
	assert.Contains(t, out, "probe 0 ")
	assert.Contains(t, out, "... and 110 more failed probes")
}

func TestProbe_CanceledStillSummarizes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	metricsFile := filepath.Join(t.TempDir(), "sitecheck.prom")
	out, err := executeContext(t, ctx, "probe", "--simulate-probes", "--seed", "5", "--metrics-file", metricsFile)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out, "FAIL accessibility rate")
	assert.Contains(t, out, "Failed: 1")

	b, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), `sitecheck_assertions{result="failed"} 1`)
}

func TestSuite_Simulated(t *testing.T) {
	port := freePort(t)
	composeFile := filepath.Join(t.TempDir(), "docker-compose.yml")
	b, err := os.ReadFile("../docker-compose.yml")
	require.NoError(t, err)
	descriptor := strings.Replace(string(b), "8080:80", fmt.Sprintf("%d:80", port), 1)
	require.NoError(t, os.WriteFile(composeFile, []byte(descriptor), 0o600))

	out, err := execute(t, "suite",
		"--simulate", "always",
		"-f", composeFile,
		"--base-url", fmt.Sprintf("http://127.0.0.1:%d", port),
		"--seed", "5",
		"--restart",
	)
	require.NoError(t, err, out)
	for _, want := range []string{
		"PASS service start",
		"PASS service ready",
		"PASS port binding",
		"PASS GET / serves the index page",
		"PASS accessibility rate",
		"PASS service restart",
		"PASS port closed",
		"Failed: 0",
	} {
		assert.Contains(t, out, want)
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err == nil {
		_ = conn.Close()
	}
	assert.Error(t, err, "the simulated service must be stopped")
}

func TestSuite_NoRuntime(t *testing.T) {
	_, err := execute(t, "suite", "--simulate", "never", "--runtime-binary", "sitecheck-no-such-runtime", "-f", "../docker-compose.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "container runtime unavailable")
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		url      string
		wantAddr string
		wantPort int
		wantErr  bool
	}{
		{url: "http://localhost:8080", wantAddr: "localhost:8080", wantPort: 8080},
		{url: "http://example.test", wantAddr: "example.test:80", wantPort: 80},
		{url: "http://[::1]:9000/", wantAddr: "[::1]:9000", wantPort: 9000},
		{url: "::", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			addr, port, err := listenAddr(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, addr)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}
