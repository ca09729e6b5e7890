package provbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSSHDConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sshd_config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadBaseline_Embedded(t *testing.T) {
	baseline, err := LoadBaseline("")
	require.NoError(t, err)

	assert.Equal(t, "no", baseline["PermitRootLogin"])
	assert.Equal(t, "no", baseline["PasswordAuthentication"])
	assert.Equal(t, "4", baseline["MaxAuthTries"])
}

func TestLoadBaseline_SiteOverride(t *testing.T) {
	overridePath := filepath.Join(t.TempDir(), "site.json")
	override := `{"MaxAuthTries": "3", "UsePAM": null, "AllowTcpForwarding": "no"}`
	require.NoError(t, os.WriteFile(overridePath, []byte(override), 0644))

	baseline, err := LoadBaseline(overridePath)
	require.NoError(t, err)

	assert.Equal(t, "3", baseline["MaxAuthTries"], "override replaces embedded value")
	assert.Equal(t, "no", baseline["AllowTcpForwarding"], "override can add options")
	assert.NotContains(t, baseline, "UsePAM", "null removes an option")
	assert.Equal(t, "no", baseline["PermitRootLogin"], "untouched options survive")
}

func TestLoadBaseline_MissingOverride(t *testing.T) {
	_, err := LoadBaseline(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestSSHDAudit_Compliant(t *testing.T) {
	configPath := writeSSHDConfig(t, `
# Hardened lab host config
PermitRootLogin no
PasswordAuthentication no
`)

	audit := &SSHDAudit{
		ConfigPath: configPath,
		Baseline: map[string]string{
			"PermitRootLogin":        "no",
			"PasswordAuthentication": "no",
		},
	}

	report, err := audit.Run()
	require.NoError(t, err)

	assert.Equal(t, AuditCompliant, report.Status)
	assert.True(t, report.Options["PermitRootLogin"].Compliant)
	assert.Equal(t, "no", report.Options["PermitRootLogin"].Actual)
}

func TestSSHDAudit_NonCompliantValue(t *testing.T) {
	configPath := writeSSHDConfig(t, "PermitRootLogin yes\n")

	audit := &SSHDAudit{
		ConfigPath: configPath,
		Baseline:   map[string]string{"PermitRootLogin": "no"},
	}

	report, err := audit.Run()
	require.NoError(t, err)

	assert.Equal(t, AuditNonCompliant, report.Status)
	opt := report.Options["PermitRootLogin"]
	assert.False(t, opt.Compliant)
	assert.Equal(t, "no", opt.Expected)
	assert.Equal(t, "yes", opt.Actual)
}

func TestSSHDAudit_MissingOptionIsNonCompliant(t *testing.T) {
	configPath := writeSSHDConfig(t, "Port 22\n")

	audit := &SSHDAudit{
		ConfigPath: configPath,
		Baseline:   map[string]string{"PermitRootLogin": "no"},
	}

	report, err := audit.Run()
	require.NoError(t, err)

	assert.Equal(t, AuditNonCompliant, report.Status)
	assert.Empty(t, report.Options["PermitRootLogin"].Actual)
}

func TestSSHDAudit_CommentedOptionIgnored(t *testing.T) {
	configPath := writeSSHDConfig(t, "#PermitRootLogin yes\nPermitRootLogin no\n")

	audit := &SSHDAudit{
		ConfigPath: configPath,
		Baseline:   map[string]string{"PermitRootLogin": "no"},
	}

	report, err := audit.Run()
	require.NoError(t, err)
	assert.Equal(t, AuditCompliant, report.Status)
}

func TestSSHDAudit_FirstOccurrenceWins(t *testing.T) {
	// sshd uses the first value for a repeated keyword
	configPath := writeSSHDConfig(t, "PermitRootLogin no\nPermitRootLogin yes\n")

	audit := &SSHDAudit{
		ConfigPath: configPath,
		Baseline:   map[string]string{"PermitRootLogin": "no"},
	}

	report, err := audit.Run()
	require.NoError(t, err)
	assert.Equal(t, AuditCompliant, report.Status)
}

func TestSSHDAudit_KeywordsCaseInsensitive(t *testing.T) {
	configPath := writeSSHDConfig(t, "permitrootlogin NO\n")

	audit := &SSHDAudit{
		ConfigPath: configPath,
		Baseline:   map[string]string{"PermitRootLogin": "no"},
	}

	report, err := audit.Run()
	require.NoError(t, err)
	assert.Equal(t, AuditCompliant, report.Status)
}

func TestSSHDAudit_MissingConfigFile(t *testing.T) {
	audit := &SSHDAudit{
		ConfigPath: filepath.Join(t.TempDir(), "missing"),
		Baseline:   map[string]string{"PermitRootLogin": "no"},
	}

	_, err := audit.Run()
	require.Error(t, err)
}
