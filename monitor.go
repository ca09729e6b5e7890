package provbox

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"time"

	"go.uber.org/zap"
)

// JobStatusHealthy and JobStatusUnhealthy are the overall report statuses.
const (
	JobStatusHealthy   = "healthy"
	JobStatusUnhealthy = "unhealthy"
)

// commandOutput runs a command and returns its stdout. Injectable so the
// monitor can be tested without a container runtime.
type commandOutput func(name string, args ...string) ([]byte, error)

func runCommandOutput(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// JobMonitor inspects the container runtime for provisioning job containers
// and reports on when each one last executed.
type JobMonitor struct {
	// Runtime is "docker", "podman", or "auto" to probe PATH for either
	Runtime string

	// Prefix filters containers by name prefix (default: "ansible")
	Prefix string

	// Window is the look-back window; jobs whose last event is older than
	// this are reported unhealthy
	Window time.Duration

	// Host overrides the hostname recorded in the report
	Host string

	// runCmd executes runtime commands (default: exec.Command().Output())
	runCmd commandOutput
}

// NewJobMonitor builds a monitor from config.
func NewJobMonitor(config *Config) *JobMonitor {
	return &JobMonitor{
		Runtime: config.Runtime,
		Prefix:  config.JobPrefix,
		Window:  time.Duration(config.WindowHours * float64(time.Hour)),
	}
}

// HealthReport is the JSON payload emitted by the monitor. The shape is
// consumed by the lab's log collector, so field names are part of the
// contract.
type HealthReport struct {
	Timestamp      string        `json:"timestamp"`
	Host           string        `json:"host"`
	AnsibleVersion string        `json:"ansible_version"`
	AnsibleUser    string        `json:"ansible_user"`
	Message        HealthMessage `json:"message"`
}

// HealthMessage holds the per-job statuses and the overall verdict.
type HealthMessage struct {
	Status string            `json:"status"`
	Jobs   map[string]string `json:"jobs"`
}

// jobContainer is one candidate container from `ps`.
type jobContainer struct {
	Name string
	ID   string
}

// psEntry is a single line of `<runtime> ps -a --format {{json .}}`.
// Docker reports Names as a string, podman variants report Name or a list,
// so both fields go through the tolerant flexNames decoder.
type psEntry struct {
	ID    string    `json:"ID"`
	IDAlt string    `json:"Id"`
	Names flexNames `json:"Names"`
	Name  flexNames `json:"Name"`
}

// flexNames accepts a JSON string or array of strings and keeps the first.
type flexNames string

func (n *flexNames) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = flexNames(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) > 0 {
			*n = flexNames(list[0])
		}
		return nil
	}
	// Unknown shape, treat as absent rather than failing the whole line
	*n = ""
	return nil
}

// inspectInfo is the subset of `<runtime> inspect` output the monitor needs.
type inspectInfo struct {
	Created string       `json:"Created"`
	State   inspectState `json:"State"`
}

type inspectState struct {
	StartedAt  string `json:"StartedAt"`
	FinishedAt string `json:"FinishedAt"`
}

// Check gathers the state of all matching job containers and builds the
// health report.
func (m *JobMonitor) Check() (*HealthReport, error) {
	runtime, err := m.resolveRuntime()
	if err != nil {
		return nil, err
	}

	containers, err := m.listJobContainers(runtime)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	jobs := make(map[string]string)
	unhealthy := false

	for _, c := range containers {
		last, ok := m.lastEventTime(runtime, c.ID)
		if !ok {
			jobs[c.Name] = "last_seen: unknown"
			unhealthy = true
			continue
		}

		if now.Sub(last) <= m.Window {
			jobs[c.Name] = "executed_at: " + last.UTC().Format(time.RFC3339)
		} else {
			jobs[c.Name] = "last_seen: " + last.UTC().Format(time.RFC3339)
			unhealthy = true
		}
	}

	status := JobStatusHealthy
	if unhealthy {
		status = JobStatusUnhealthy
	}

	host := m.Host
	if host == "" {
		host, _ = os.Hostname()
	}

	report := &HealthReport{
		Timestamp:      now.Format(time.RFC3339),
		Host:           host,
		AnsibleVersion: m.ansibleVersion(),
		AnsibleUser:    ansibleUser(),
		Message: HealthMessage{
			Status: status,
			Jobs:   jobs,
		},
	}

	zlog.Info("job monitor check complete",
		zap.String("runtime", runtime),
		zap.Int("jobs", len(jobs)),
		zap.String("status", status))

	return report, nil
}

// resolveRuntime picks the container runtime, probing PATH when set to auto.
func (m *JobMonitor) resolveRuntime() (string, error) {
	switch m.Runtime {
	case "docker", "podman":
		return m.Runtime, nil
	case "", "auto":
		for _, rt := range []string{"docker", "podman"} {
			if _, err := exec.LookPath(rt); err == nil {
				return rt, nil
			}
		}
		return "", fmt.Errorf("neither docker nor podman found in PATH")
	default:
		return "", fmt.Errorf("invalid runtime %q, valid values: auto, docker, podman", m.Runtime)
	}
}

// listJobContainers lists all containers and keeps those whose name starts
// with the configured prefix. Unparsable lines are skipped: some runtimes
// interleave warnings with the JSON stream.
func (m *JobMonitor) listJobContainers(runtime string) ([]jobContainer, error) {
	out, err := m.output(runtime, "ps", "-a", "--format", "{{json .}}")
	if err != nil {
		return nil, fmt.Errorf("failed to list containers with %s: %w", runtime, err)
	}

	var containers []jobContainer
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var entry psEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			zlog.Debug("skipping unparsable ps line", zap.String("line", line))
			continue
		}

		name := string(entry.Names)
		if name == "" {
			name = string(entry.Name)
		}
		id := entry.ID
		if id == "" {
			id = entry.IDAlt
		}

		if name != "" && strings.HasPrefix(name, m.Prefix) {
			containers = append(containers, jobContainer{Name: name, ID: id})
		}
	}

	return containers, nil
}

// lastEventTime determines the most relevant timestamp for "last executed":
// the latest of State.FinishedAt, State.StartedAt and Created. Returns false
// if no usable timestamp exists.
func (m *JobMonitor) lastEventTime(runtime, containerID string) (time.Time, bool) {
	out, err := m.output(runtime, "inspect", containerID)
	if err != nil {
		zlog.Debug("failed to inspect container",
			zap.String("container_id", containerID),
			zap.Error(err))
		return time.Time{}, false
	}

	var infos []inspectInfo
	if err := json.Unmarshal(out, &infos); err != nil || len(infos) == 0 {
		return time.Time{}, false
	}
	info := infos[0]

	var last time.Time
	for _, raw := range []string{info.State.FinishedAt, info.State.StartedAt, info.Created} {
		if t, ok := parseRuntimeTime(raw); ok && t.After(last) {
			last = t
		}
	}

	if last.IsZero() {
		return time.Time{}, false
	}
	return last, true
}

// parseRuntimeTime parses the RFC3339Nano-style timestamps docker and podman
// emit. The zero value "0001-01-01T00:00:00Z" (never finished) is treated as
// absent.
func parseRuntimeTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	if t.IsZero() || t.Year() <= 1 {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ansibleVersion reports the locally installed ansible version, falling back
// to the ANSIBLE_VERSION environment variable, then "unknown".
func (m *JobMonitor) ansibleVersion() string {
	if path, err := exec.LookPath("ansible"); err == nil {
		if out, err := m.output(path, "--version"); err == nil {
			if v := parseAnsibleVersion(string(out)); v != "" {
				return v
			}
		}
	}
	if v := os.Getenv("ANSIBLE_VERSION"); v != "" {
		return v
	}
	return "unknown"
}

// parseAnsibleVersion extracts the version number from `ansible --version`
// output, e.g. "ansible [core 2.15.0]" or "ansible 2.15.0".
func parseAnsibleVersion(out string) string {
	lines := strings.SplitN(out, "\n", 2)
	first := strings.NewReplacer("[", " ", "]", " ").Replace(lines[0])
	for _, token := range strings.Fields(first) {
		if token[0] >= '0' && token[0] <= '9' {
			return token
		}
	}
	return ""
}

// ansibleUser reports who provisioning runs as: ANSIBLE_USER wins, then the
// current OS user.
func ansibleUser() string {
	if v := os.Getenv("ANSIBLE_USER"); v != "" {
		return v
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

func (m *JobMonitor) output(name string, args ...string) ([]byte, error) {
	if m.runCmd != nil {
		return m.runCmd(name, args...)
	}
	return runCommandOutput(name, args...)
}
