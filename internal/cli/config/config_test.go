package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadConfigDefaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultMetadataDir), cfg.MetadataDir)
	assert.Equal(t, filepath.Join(dir, DefaultRegistryPath), cfg.RegistryPath)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfigFromFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tabmeta.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"metadata_dir: artifacts\nworkers: 8\nverbose: true\n"), 0o644))

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "artifacts"), cfg.MetadataDir)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
}

func TestLoadConfigFindsFileUpward(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "tabmeta.yaml"),
		[]byte("metadata_dir: artifacts\n"), 0o644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	// Resolve symlinks so the comparison survives macOS /tmp indirection.
	wantRoot, _ := filepath.EvalSymlinks(root)
	gotRoot, _ := filepath.EvalSymlinks(cfg.ProjectRoot)
	assert.Equal(t, wantRoot, gotRoot)
	assert.Equal(t, "artifacts", filepath.Base(cfg.MetadataDir))
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tabmeta.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("workers: 8\n"), 0o644))
	t.Setenv("TABMETA_WORKERS", "2")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	ResetConfig()
	chdir(t, t.TempDir())
	t.Setenv("TABMETA_OUTPUT", "markdown")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "")
	require.NoError(t, flags.Set("output", "json"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestLoadConfigUnsetFlagDoesNotOverride(t *testing.T) {
	ResetConfig()
	chdir(t, t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "")

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
}

func TestLoadConfigKebabFlagMapsToSnakeKey(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	chdir(t, dir)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("metadata-dir", "", "")
	require.NoError(t, flags.Set("metadata-dir", "out"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "out", filepath.Base(cfg.MetadataDir))
}

func TestLoadConfigAbsolutePathsUntouched(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tabmeta.yaml")
	require.NoError(t, os.WriteFile(cfgPath,
		[]byte("metadata_dir: /var/lib/tabmeta\n"), 0o644))

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/tabmeta", cfg.MetadataDir)
}

func TestLoadConfigBadYAML(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tabmeta.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("metadata_dir: [\n"), 0o644))

	_, err := LoadConfig(cfgPath, nil)
	assert.Error(t, err)
}

func TestLoadConfigWorkersFloor(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tabmeta.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("workers: 0\n"), 0o644))

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Workers)
}
