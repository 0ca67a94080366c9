package elevator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func with_config_file(t *testing.T, content string) {
	t.Helper()

	var dir = t.TempDir()
	var path = filepath.Join(dir, "controller.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	var saved = config_search_path
	config_search_path = []string{path}
	t.Cleanup(func() { config_search_path = saved })
}

func TestConfigDefaults(t *testing.T) {
	var saved = config_search_path
	config_search_path = []string{filepath.Join(t.TempDir(), "nothing.yaml")}
	t.Cleanup(func() { config_search_path = saved })

	var mc, err = config_load()
	require.NoError(t, err)

	assert.Equal(t, DEFAULT_DISPATCH_PORT, mc.DispatchPort)
	assert.Empty(t, mc.LogDir)

	// Announcement is on by default; the config file only turns it off.
	assert.True(t, mc.DNSSD)
}

func TestConfigFile(t *testing.T) {
	with_config_file(t, "port: 4100\nlog_dir: /tmp/evlog\ndns_sd: false\ndns_sd_name: Test Bank\n")

	var mc, err = config_load()
	require.NoError(t, err)

	assert.Equal(t, 4100, mc.DispatchPort)
	assert.Equal(t, "/tmp/evlog", mc.LogDir)
	assert.False(t, mc.DNSSD)
	assert.Equal(t, "Test Bank", mc.DNSSDName)
}

func TestConfigBadYAML(t *testing.T) {
	with_config_file(t, "port: [not a port\n")

	var _, err = config_load()
	assert.Error(t, err)
}

func TestConfigBadPort(t *testing.T) {
	with_config_file(t, "port: 123456\n")

	var _, err = config_load()
	assert.Error(t, err)
}
