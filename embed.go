package provbox

import (
	_ "embed"
)

// EntrypointDocsMD documents the entrypoint contract and configuration.
// Rendered by `provbox docs`.
//
//go:embed embedded/entrypoint.md
var EntrypointDocsMD string

// SSHDBaselineJSON is the built-in sshd hardening baseline used by
// `provbox audit` when no site override is given.
//
//go:embed embedded/sshd_baseline.json
var SSHDBaselineJSON []byte
