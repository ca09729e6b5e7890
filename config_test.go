package provbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultInventoryPath, config.InventoryPath)
	assert.Equal(t, DefaultPlaybookPath, config.PlaybookPath)
	assert.Equal(t, DefaultAnsibleBinary, config.AnsibleBinary)
	assert.Equal(t, "auto", config.Runtime)
	assert.Equal(t, "ansible", config.JobPrefix)
	assert.Equal(t, 24.0, config.WindowHours)
	assert.Equal(t, filepath.Join(tempDir, ".config", "provbox"), config.DataDir)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvInventory, "custom/hosts.ini")
	t.Setenv(EnvPlaybook, "custom.yml")
	t.Setenv(EnvAnsibleBin, "/opt/ansible/bin/ansible-playbook")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "custom/hosts.ini", config.InventoryPath)
	assert.Equal(t, "custom.yml", config.PlaybookPath)
	assert.Equal(t, "/opt/ansible/bin/ansible-playbook", config.AnsibleBinary)
}

func TestLoadConfig_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	dataDir := filepath.Join(tempDir, ".config", "provbox")
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	content := `
inventory_path: lab/hosts.ini
playbook_path: lab.yml
runtime: podman
job_prefix: eda-job
window_hours: 12
`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(content), 0644))

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "lab/hosts.ini", config.InventoryPath)
	assert.Equal(t, "lab.yml", config.PlaybookPath)
	assert.Equal(t, "podman", config.Runtime)
	assert.Equal(t, "eda-job", config.JobPrefix)
	assert.Equal(t, 12.0, config.WindowHours)
	// File doesn't set the binary, default survives
	assert.Equal(t, DefaultAnsibleBinary, config.AnsibleBinary)
}

func TestLoadConfig_EnvBeatsFile(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	dataDir := filepath.Join(tempDir, ".config", "provbox")
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"),
		[]byte("inventory_path: from-file.ini\n"), 0644))

	t.Setenv(EnvInventory, "from-env.ini")

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env.ini", config.InventoryPath)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	config, err := LoadConfig()
	require.NoError(t, err)

	config.PlaybookPath = "nightly.yml"
	config.JobPrefix = "nightly"
	require.NoError(t, SaveConfig(config))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "nightly.yml", loaded.PlaybookPath)
	assert.Equal(t, "nightly", loaded.JobPrefix)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, expandPath("~"))
	assert.Equal(t, filepath.Join(home, "lab"), expandPath("~/lab"))
	assert.Equal(t, "/absolute/path", expandPath("/absolute/path"))
	assert.Equal(t, "relative", expandPath("relative"))
}
