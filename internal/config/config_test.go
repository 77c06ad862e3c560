package config

import (
	"os"
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJSON = `{
	"api_base_url": "http://json-config.com",
	"session_file_path": "json_session.json",
	"log_level": "error"
}`

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	file, err := os.CreateTemp("", "config*.json")
	require.NoError(t, err)
	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	t.Cleanup(func() {
		err := os.Remove(file.Name())
		require.NoError(t, err)
	})
	return file.Name()
}

func TestDefaults(t *testing.T) {
	values := Config{}

	applyDefaults(&values, defaultConfig)

	assert.Equal(t, "http://localhost:8080", values.APIBaseURL)
	assert.Equal(t, "session.json", values.SessionFileName)
	assert.Equal(t, "info", values.LogLevel)
	assert.Equal(t, 10*time.Second, values.RequestTimeout)
}

func TestEnvParsing(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://env.com")
	t.Setenv("REQUEST_TIMEOUT", "3s")

	values := Config{}
	err := env.Parse(&values)
	require.NoError(t, err)

	assert.Equal(t, "http://env.com", values.APIBaseURL)
	assert.Equal(t, 3*time.Second, values.RequestTimeout)
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "http://json-config.com", cfg.APIBaseURL)
	assert.Equal(t, "json_session.json", cfg.SessionFileName)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("API_BASE_URL", "http://env.com")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "http://env.com", cfg.APIBaseURL) // env overrides json
	assert.Equal(t, "json_session.json", cfg.SessionFileName)
}

func TestConfigPriorityAllSources(t *testing.T) {
	jsonPath := writeTempJSON(t, testJSON)
	t.Setenv("CONFIG", jsonPath)
	t.Setenv("API_BASE_URL", "http://env.com")

	os.Args = []string{
		"testbin",
		"-b", "http://cli.com",
		"-l", "debug",
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "http://cli.com", cfg.APIBaseURL) // CLI > ENV > JSON
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json_session.json", cfg.SessionFileName) // from JSON
}

func TestConfigSubcommandArgs(t *testing.T) {
	os.Args = []string{
		"testbin",
		"-l", "debug",
		"login", "-e", "a@b.com",
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, []string{"login", "-e", "a@b.com"}, cfg.Args)
}

func TestConfigRejectsUnknownLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}
