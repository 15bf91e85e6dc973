package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/persistence-go/internal/persistence/prefs"
)

const testConfig = `
persistence:
  serializer: binary
  compressor: zstd
  cryptographer: aes
  slot_name: Slot
  development: false
  preferences:
    driver: memory
logging:
  storage:
    level: debug
metrics:
  enable: false
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunWithConfigFile(t *testing.T) {
	dataPath := t.TempDir()
	app := New(WithConfigPath(writeConfig(t, testConfig)), WithDataPath(dataPath))
	require.NoError(t, app.Run(context.Background()))
	defer func() { assert.NoError(t, app.Close(context.Background())) }()

	cfg := app.Config().Persistence
	assert.Equal(t, "binary", cfg.Serializer)
	assert.Equal(t, "zstd", cfg.Compressor)
	assert.Equal(t, "aes", cfg.Cryptographer)
	assert.Equal(t, "Slot", cfg.SlotName)
	assert.Equal(t, "LastSlot", cfg.LastSlotKey)
	assert.Equal(t, dataPath, cfg.DataPath)
	assert.False(t, cfg.Development)
	assert.Equal(t, prefs.DriverMemory, cfg.Preferences.Driver)

	st := app.Settings()
	require.NotNil(t, st)
	assert.Equal(t, "Slot-01", st.SlotName(1))
	assert.True(t, st.SaveSlot(context.Background(), map[string]any{"gold": 10}, 1).Ok())

	assert.NotNil(t, app.Logger("storage"))
	assert.NotNil(t, app.Logger("unknown"))
}

func TestRunWithEnvOverride(t *testing.T) {
	t.Setenv("PERSISTENCE_SERIALIZER", "xml")
	t.Setenv("PERSISTENCE_DEVELOPMENT", "true")
	app := New(WithConfigPath(writeConfig(t, "persistence:\n  preferences:\n    driver: memory\n")), WithDataPath(t.TempDir()))
	require.NoError(t, app.Run(context.Background()))
	defer app.Close(context.Background())

	assert.Equal(t, "xml", app.Config().Persistence.Serializer)
	assert.True(t, app.Config().Persistence.Development)
}

func TestRunDefaultPreferencesPath(t *testing.T) {
	dataPath := t.TempDir()
	app := New(WithConfigPath(writeConfig(t, "persistence:\n  compressor: gzip\n")), WithDataPath(dataPath))
	require.NoError(t, app.Run(context.Background()))
	defer app.Close(context.Background())

	cfg := app.Config().Persistence
	assert.Equal(t, prefs.DriverBuntDB, cfg.Preferences.Driver)
	assert.Equal(t, filepath.Join(dataPath, preferencesFile), cfg.Preferences.Path)
}

func TestRunMissingExplicitConfig(t *testing.T) {
	app := New(WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Error(t, app.Run(context.Background()))
}

func TestRunInvalidConfig(t *testing.T) {
	app := New(WithConfigPath(writeConfig(t, "persistence:\n  serializer: yaml\n")), WithDataPath(t.TempDir()))
	assert.Error(t, app.Run(context.Background()))
}

func TestConfigPathFromArgs(t *testing.T) {
	path, err := configPathFromArgs([]string{"save", "--config", "a.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "a.yaml", path)

	path, err = configPathFromArgs([]string{"--config=b.json", "list"})
	require.NoError(t, err)
	assert.Equal(t, "b.json", path)

	path, err = configPathFromArgs([]string{"list"})
	require.NoError(t, err)
	assert.Empty(t, path)

	_, err = configPathFromArgs([]string{"--config"})
	assert.Error(t, err)
}

func TestResolveConfigPathFromEnv(t *testing.T) {
	t.Setenv(envConfigPath, "/etc/persistence.yaml")
	path, explicit, err := New().resolveConfigPath(nil)
	require.NoError(t, err)
	assert.True(t, explicit)
	assert.Equal(t, "/etc/persistence.yaml", path)

	path, explicit, err = New(WithConfigPath("cli.yaml")).resolveConfigPath(nil)
	require.NoError(t, err)
	assert.True(t, explicit)
	assert.Equal(t, "cli.yaml", path)
}

func TestIsDevelopment(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "1.2.3"
	assert.False(t, IsDevelopment())
	Version = "v1.3.0-rc.1"
	assert.True(t, IsDevelopment())
	Version = "not-a-version"
	assert.True(t, IsDevelopment())

	Version = "v2.0.1"
	v, err := BuildVersion()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v.Major)
}
