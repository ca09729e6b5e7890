package provbox

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kaptinlin/jsonmerge"
	"go.uber.org/zap"
)

// Compliance statuses for the audit report.
const (
	AuditCompliant    = "compliant"
	AuditNonCompliant = "non-compliant"
)

// SSHDAudit checks an sshd_config against a baseline of required option
// values. Provisioned hosts are expected to pass before jobs run on them.
type SSHDAudit struct {
	// ConfigPath is the sshd_config to audit (default: /etc/ssh/sshd_config)
	ConfigPath string

	// Baseline maps sshd option names to their required values
	Baseline map[string]string
}

// AuditReport is the JSON compliance report.
type AuditReport struct {
	Status  string                 `json:"status"`
	Config  string                 `json:"config"`
	Options map[string]AuditOption `json:"options"`
}

// AuditOption records the outcome for one baseline option. Actual is empty
// when the option is not set (or commented out) in the config.
type AuditOption struct {
	Expected  string `json:"expected"`
	Actual    string `json:"actual,omitempty"`
	Compliant bool   `json:"compliant"`
}

// LoadBaseline returns the effective baseline: the embedded defaults, with
// the optional site override file applied as an RFC 7386 merge patch. An
// override value of null removes the option from the baseline.
func LoadBaseline(overridePath string) (map[string]string, error) {
	var base map[string]any
	if err := json.Unmarshal(SSHDBaselineJSON, &base); err != nil {
		return nil, fmt.Errorf("failed to parse embedded baseline: %w", err)
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read baseline override: %w", err)
		}

		var patch map[string]any
		if err := json.Unmarshal(data, &patch); err != nil {
			return nil, fmt.Errorf("failed to parse baseline override: %w", err)
		}

		result, err := jsonmerge.Merge(base, patch)
		if err != nil {
			return nil, fmt.Errorf("failed to merge baseline override: %w", err)
		}
		base = result.Doc

		zlog.Debug("merged baseline override",
			zap.String("override_path", overridePath),
			zap.Int("options", len(base)))
	}

	baseline := make(map[string]string, len(base))
	for key, value := range base {
		baseline[key] = fmt.Sprintf("%v", value)
	}
	return baseline, nil
}

// Run parses the sshd config and evaluates every baseline option. The
// overall status is compliant only when all options are.
func (a *SSHDAudit) Run() (*AuditReport, error) {
	configPath := a.ConfigPath
	if configPath == "" {
		configPath = "/etc/ssh/sshd_config"
	}

	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sshd config: %w", err)
	}
	defer f.Close()

	effective, err := parseSSHDConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sshd config: %w", err)
	}

	report := &AuditReport{
		Status:  AuditCompliant,
		Config:  configPath,
		Options: make(map[string]AuditOption, len(a.Baseline)),
	}

	for key, expected := range a.Baseline {
		actual, found := effective[strings.ToLower(key)]
		compliant := found && strings.EqualFold(actual, expected)
		if !compliant {
			report.Status = AuditNonCompliant
		}
		report.Options[key] = AuditOption{
			Expected:  expected,
			Actual:    actual,
			Compliant: compliant,
		}
	}

	zlog.Info("sshd audit complete",
		zap.String("config", configPath),
		zap.String("status", report.Status),
		zap.Int("options", len(report.Options)))

	return report, nil
}

// parseSSHDConfig reads the effective option values from an sshd_config
// stream. Keywords are case-insensitive and the first occurrence of an
// option wins, matching sshd's own semantics. Match blocks are not handled;
// the baseline targets global options only.
func parseSSHDConfig(f *os.File) (map[string]string, error) {
	effective := make(map[string]string)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		key := strings.ToLower(fields[0])
		if _, seen := effective[key]; seen {
			continue
		}
		effective[key] = strings.Join(fields[1:], " ")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return effective, nil
}
