// Package provbox is an entrypoint toolkit for Ansible-provisioned job
// containers: it runs a provisioning playbook, hands control off to the job
// command, and provides health monitoring and compliance auditing for the
// resulting containers.
package provbox

import (
	"github.com/streamingfast/logging"
)

var zlog, _ = logging.PackageLogger("provbox", "github.com/edalab/provbox")
