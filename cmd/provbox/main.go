package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"charm.land/glamour/v2"
	"github.com/edalab/provbox"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	. "github.com/streamingfast/cli"
	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

// Version is set via ldflags at build time
var version = "dev"

var zlog, _ = logging.PackageLogger("provbox", "github.com/edalab/provbox/cmd/main")

func init() {
	logging.InstantiateLoggers(logging.WithDefaultLevel(zap.DPanicLevel))
}

func main() {
	Run(
		"provbox <command>",
		"Ansible provisioning entrypoint and job health tooling for lab containers",

		ConfigureVersion(version),
		ConfigureViper("PROVBOX"),

		// Default command (no subcommand = entrypoint)
		Execute(entrypointE),

		EntrypointCommand,

		Command(monitorE,
			"monitor",
			"Report last-execution health of provisioning job containers",
			Description(`
				Lists job containers (docker or podman) whose name starts with the
				configured prefix, determines when each one last executed, and
				reports healthy/unhealthy against the look-back window.

				The default output is the JSON payload consumed by the lab's log
				collector; use --format table for a human-readable summary.
			`),
			Flags(func(flags *pflag.FlagSet) {
				flags.String("prefix", "", "Container name prefix to filter (default: from config)")
				flags.Float64("hours", 0, "Look-back window in hours (default: from config)")
				flags.String("runtime", "", "Container runtime: auto, docker or podman (default: from config)")
				flags.String("host", "", "Host name override")
				flags.String("format", "json", "Output format: json or table")
				flags.Bool("pretty", false, "Pretty-print JSON output")
			}),
		),

		Command(auditE,
			"audit",
			"Audit an sshd_config against the hardening baseline",
			Description(`
				Parses an sshd_config and checks every option in the baseline
				against its effective value. The built-in baseline can be adjusted
				with a site override file, applied as an RFC 7386 merge patch
				(null removes an option).

				The report is JSON by default; use --format table for a terminal
				summary, and --output to also write the JSON report to a file.
			`),
			Flags(func(flags *pflag.FlagSet) {
				flags.String("config", "/etc/ssh/sshd_config", "Path to the sshd config to audit")
				flags.String("baseline", "", "Site baseline override file (JSON merge patch)")
				flags.StringP("output", "o", "", "Write the JSON report to this file")
				flags.String("format", "json", "Output format: json or table")
				flags.Bool("pretty", false, "Pretty-print JSON output")
			}),
		),

		Command(configE,
			"config [key] [value]",
			"View or edit configuration settings",
			Description(`
				Without arguments, displays the current configuration.
				With a key, displays that setting's value.
				With key and value, sets the configuration option.
			`),
		),

		Command(docsE,
			"docs",
			"Show the entrypoint documentation",
		),

		OnCommandError(func(err error) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			zlog.Debug("command error", zap.Error(err))

			// Provisioning failures carry the tool's own exit status; the
			// wrapper must terminate with the same code.
			var coded *provbox.ExitCodeError
			if errors.As(err, &coded) && coded.Code > 0 {
				os.Exit(coded.Code)
			}
			os.Exit(1)
		}),
	)
}

// monitorE reports job container health
func monitorE(cmd *cobra.Command, args []string) error {
	provbox.SetupLogging()

	config, err := provbox.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	monitor := provbox.NewJobMonitor(config)

	if prefix, _ := cmd.Flags().GetString("prefix"); prefix != "" {
		monitor.Prefix = prefix
	}
	if hours, _ := cmd.Flags().GetFloat64("hours"); hours > 0 {
		monitor.Window = time.Duration(hours * float64(time.Hour))
	}
	if runtime, _ := cmd.Flags().GetString("runtime"); runtime != "" {
		monitor.Runtime = runtime
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		monitor.Host = host
	}

	report, err := monitor.Check()
	if err != nil {
		return fmt.Errorf("failed to check job health: %w", err)
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "table" {
		cmd.Print(provbox.RenderHealthReport(report))
		return nil
	}

	pretty, _ := cmd.Flags().GetBool("pretty")
	data, err := marshalReport(report, pretty)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// auditE audits an sshd_config against the hardening baseline
func auditE(cmd *cobra.Command, args []string) error {
	provbox.SetupLogging()

	configPath, _ := cmd.Flags().GetString("config")
	baselinePath, _ := cmd.Flags().GetString("baseline")

	baseline, err := provbox.LoadBaseline(baselinePath)
	if err != nil {
		return fmt.Errorf("failed to load baseline: %w", err)
	}

	audit := &provbox.SSHDAudit{
		ConfigPath: configPath,
		Baseline:   baseline,
	}

	report, err := audit.Run()
	if err != nil {
		return fmt.Errorf("failed to run audit: %w", err)
	}

	pretty, _ := cmd.Flags().GetBool("pretty")
	data, err := marshalReport(report, pretty)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := os.WriteFile(output, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		cmd.Printf("Report written to %s\n", output)
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "table" {
		cmd.Print(provbox.RenderAuditReport(report))
	} else {
		cmd.Println(string(data))
	}

	if report.Status != provbox.AuditCompliant {
		return fmt.Errorf("sshd config %s is not compliant", configPath)
	}
	return nil
}

// configE views or edits configuration
func configE(cmd *cobra.Command, args []string) error {
	provbox.SetupLogging()

	config, err := provbox.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(args) == 0 {
		cmd.Println("Global configuration:")
		cmd.Printf("  inventory_path: %s\n", config.InventoryPath)
		cmd.Printf("  playbook_path:  %s\n", config.PlaybookPath)
		cmd.Printf("  ansible_binary: %s\n", config.AnsibleBinary)
		cmd.Printf("  runtime:        %s\n", config.Runtime)
		cmd.Printf("  job_prefix:     %s\n", config.JobPrefix)
		cmd.Printf("  window_hours:   %g\n", config.WindowHours)
		cmd.Printf("  data_dir:       %s\n", config.DataDir)
		return nil
	}

	key := args[0]

	if len(args) == 1 {
		switch key {
		case "inventory_path":
			cmd.Println(config.InventoryPath)
		case "playbook_path":
			cmd.Println(config.PlaybookPath)
		case "ansible_binary":
			cmd.Println(config.AnsibleBinary)
		case "runtime":
			cmd.Println(config.Runtime)
		case "job_prefix":
			cmd.Println(config.JobPrefix)
		case "window_hours":
			cmd.Printf("%g\n", config.WindowHours)
		case "data_dir":
			cmd.Println(config.DataDir)
		default:
			return fmt.Errorf("unknown config key: %s", key)
		}
		return nil
	}

	value := args[1]
	switch key {
	case "inventory_path":
		config.InventoryPath = value
	case "playbook_path":
		config.PlaybookPath = value
	case "ansible_binary":
		config.AnsibleBinary = value
	case "runtime":
		if value != "auto" && value != "docker" && value != "podman" {
			return fmt.Errorf("runtime must be one of: auto, docker, podman")
		}
		config.Runtime = value
	case "job_prefix":
		config.JobPrefix = value
	case "window_hours":
		hours, err := strconv.ParseFloat(value, 64)
		if err != nil || hours <= 0 {
			return fmt.Errorf("window_hours must be a positive number")
		}
		config.WindowHours = hours
	default:
		return fmt.Errorf("cannot set config key: %s (read-only or unknown)", key)
	}

	if err := provbox.SaveConfig(config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

// docsE renders the embedded entrypoint documentation
func docsE(cmd *cobra.Command, args []string) error {
	provbox.SetupLogging()

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	out, err := renderer.Render(provbox.EntrypointDocsMD)
	if err != nil {
		return fmt.Errorf("failed to render documentation: %w", err)
	}

	cmd.Print(out)
	return nil
}

func marshalReport(report any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(report, "", "  ")
	}
	return json.Marshal(report)
}
