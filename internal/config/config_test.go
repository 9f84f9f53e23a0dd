package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.Equal(t, []string{"registrar", "names"}, cfg.Discovery.Strategies)
	assert.Equal(t, []string{"menu", "appmenu"}, cfg.Discovery.NamePatterns)
	assert.Equal(t, "/com/canonical/menu/%d", cfg.Discovery.PathTemplate)
	assert.Equal(t, int32(-1), cfg.Layout.RecursionDepth)
	assert.Empty(t, cfg.Layout.Properties)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, filepath.Join(dir, "globalmenu.sock"), cfg.ControlSocket)
	assert.Empty(t, cfg.File)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `debug: true
discovery:
  strategies: [names]
  name_patterns: [gtk, qt]
layout:
  properties: [label, enabled]
focus:
  poll_interval: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	t.Setenv("GLOBALMENU_CONTROL_SOCKET", filepath.Join(dir, "ctl.sock"))
	t.Setenv("GLOBALMENU_LAYOUT_RECURSION_DEPTH", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"names"}, cfg.Discovery.Strategies)
	assert.Equal(t, []string{"gtk", "qt"}, cfg.Discovery.NamePatterns)
	assert.Equal(t, []string{"label", "enabled"}, cfg.Layout.Properties)
	assert.Equal(t, int32(3), cfg.Layout.RecursionDepth)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, filepath.Join(dir, "ctl.sock"), cfg.ControlSocket)
	assert.Equal(t, path, cfg.File)
}

func TestPathHonoursOverride(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv("GLOBALMENU_CONFIG_PATH", custom)

	path, err := Path()
	require.NoError(t, err)
	assert.Equal(t, custom, path)
}

func TestValidate(t *testing.T) {
	base := Config{
		Discovery:     Discovery{Strategies: []string{"names"}},
		Layout:        Layout{RecursionDepth: -1},
		PollInterval:  time.Second,
		ControlSocket: "/tmp/x.sock",
	}
	require.NoError(t, base.Validate())

	noStrategies := base
	noStrategies.Discovery.Strategies = nil
	assert.Error(t, noStrategies.Validate())

	badDepth := base
	badDepth.Layout.RecursionDepth = -2
	assert.Error(t, badDepth.Validate())

	badPoll := base
	badPoll.PollInterval = 0
	assert.Error(t, badPoll.Validate())
}
