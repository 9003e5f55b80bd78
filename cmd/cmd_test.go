package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-country-currency/internal/artifacts"
	"github.com/tbourn/go-country-currency/internal/services"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(dir, "nope.env")))
	})

	t.Run("empty path is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(""))
	})

	t.Run("loads without overriding", func(t *testing.T) {
		p := filepath.Join(dir, "test.env")
		require.NoError(t, os.WriteFile(p, []byte("CC_TEST_FROM_FILE=file\nCC_TEST_PRESET=file\n"), 0o600))
		t.Setenv("CC_TEST_PRESET", "env")
		t.Setenv("CC_TEST_FROM_FILE", "")
		require.NoError(t, os.Unsetenv("CC_TEST_FROM_FILE"))

		require.NoError(t, loadEnvFile(p))
		assert.Equal(t, "file", os.Getenv("CC_TEST_FROM_FILE"))
		assert.Equal(t, "env", os.Getenv("CC_TEST_PRESET"))
	})

	t.Run("unreadable path fails", func(t *testing.T) {
		assert.Error(t, loadEnvFile(dir))
	})
}

// commandEnv points configuration at temp storage and fake upstream APIs.
func commandEnv(t *testing.T) *atomic.Int32 {
	t.Helper()
	var calls atomic.Int32

	countries := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[
			{"name":{"common":"Wakanda"},"capital":["Birnin Zana"],"region":"Africa","population":1000,"currencies":{"WKD":{}},"flags":{"svg":"https://flags.example/wk.svg"}},
			{"name":{"common":"Genovia"},"region":"Europe","population":30000,"currencies":{}}
		]`))
	}))
	t.Cleanup(countries.Close)
	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":"success","rates":{"USD":1,"WKD":2.5}}`))
	}))
	t.Cleanup(rates.Close)

	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "countries.db"))
	t.Setenv("ARTIFACT_BACKEND", "file")
	t.Setenv("CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("COUNTRIES_API_URL", countries.URL)
	t.Setenv("RATES_API_URL", rates.URL)
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")
	return &calls
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", ""))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	commandEnv(t)

	_, err := run(t, "migrate")
	require.NoError(t, err)
	assert.FileExists(t, os.Getenv("DB_PATH"))
}

func TestRefreshCommand(t *testing.T) {
	calls := commandEnv(t)

	out, err := run(t, "refresh", "--idempotency-key", "cli-run-1")
	require.NoError(t, err)

	var first services.RefreshResult
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, 2, first.TotalProcessed)
	assert.NotEmpty(t, first.LastRefreshedAt)
	assert.FileExists(t, filepath.Join(os.Getenv("CACHE_DIR"), artifacts.ImageName))

	// same key: stored result, no upstream call
	out, err = run(t, "refresh", "--idempotency-key", "cli-run-1")
	require.NoError(t, err)
	var second services.RefreshResult
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRefreshCommand_BadConfig(t *testing.T) {
	commandEnv(t)
	t.Setenv("DB_DRIVER", "oracle")

	_, err := run(t, "refresh", "--idempotency-key", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}
