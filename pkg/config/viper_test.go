package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "relay.yaml"), []byte("server:\n  port: 8080\n  host: 0.0.0.0\n"), 0o600))

	t.Setenv("SERVER_PORT", "9999")

	v, err := Load(dir, "relay")
	require.NoError(t, err)

	assert.Equal(t, 9999, v.GetInt("server.port"))
	assert.Equal(t, "0.0.0.0", v.GetString("server.host"))
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	v, err := Load(t.TempDir(), "does-not-exist")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("RELAY_DOTENV_A=from-file\nRELAY_DOTENV_B=from-file\n"), 0o600))

	t.Setenv("RELAY_DOTENV_B", "from-env")
	os.Unsetenv("RELAY_DOTENV_A")
	t.Cleanup(func() { os.Unsetenv("RELAY_DOTENV_A") })

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))

	assert.Equal(t, "from-file", os.Getenv("RELAY_DOTENV_A"))
	assert.Equal(t, "from-env", os.Getenv("RELAY_DOTENV_B"))
}

func TestGetEnv(t *testing.T) {
	t.Setenv("RELAY_GETENV", "x")
	assert.Equal(t, "x", GetEnv("RELAY_GETENV", "d"))
	assert.Equal(t, "d", GetEnv("RELAY_GETENV_UNSET", "d"))
}
