package main

import (
	"context"
	"fmt"

	"github.com/edalab/provbox"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	. "github.com/streamingfast/cli"
)

var EntrypointCommand = Command(entrypointE,
	"entrypoint -- <cmd> [args...]",
	"Run the provisioning playbook, then hand off to the given command",
	Description(`
		Container entrypoint: runs ansible-playbook against the configured
		inventory and playbook, and on success replaces the current process
		with the given command. The command's arguments are passed through
		verbatim; put them after -- so they are not parsed as provbox flags.

		If provisioning fails, the command never runs and provbox exits with
		the playbook's own exit status.
	`),
	Flags(func(flags *pflag.FlagSet) {
		flags.StringP("inventory", "i", "", "Ansible inventory path (default: from config)")
		flags.StringP("playbook", "p", "", "Playbook path (default: from config)")
		flags.String("ansible-bin", "", "Provisioning binary (default: from config)")
	}),
)

// entrypointE runs provisioning then replaces the process with the job
// command. On success this function never returns.
func entrypointE(cmd *cobra.Command, args []string) error {
	provbox.SetupLogging()

	config, err := provbox.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if inventory, _ := cmd.Flags().GetString("inventory"); inventory != "" {
		config.InventoryPath = inventory
	}
	if playbook, _ := cmd.Flags().GetString("playbook"); playbook != "" {
		config.PlaybookPath = playbook
	}
	if bin, _ := cmd.Flags().GetString("ansible-bin"); bin != "" {
		config.AnsibleBinary = bin
	}

	return provbox.NewEntrypoint(config).Run(context.Background(), args)
}
