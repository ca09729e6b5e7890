package provbox

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoff_EmptyCommand(t *testing.T) {
	err := Handoff(nil, (&fakeExec{}).exec)
	require.ErrorIs(t, err, ErrEmptyCommand)

	err = Handoff([]string{}, (&fakeExec{}).exec)
	require.ErrorIs(t, err, ErrEmptyCommand)
}

func TestHandoff_ResolvesThroughPATH(t *testing.T) {
	binDir := t.TempDir()
	target := filepath.Join(binDir, "run-job")
	require.NoError(t, os.WriteFile(target, []byte("#!/bin/sh\nexit 0\n"), 0755))
	t.Setenv("PATH", binDir)

	execer := &fakeExec{}
	err := Handoff([]string{"run-job", "--batch", "x"}, execer.exec)
	require.NoError(t, err)

	assert.Equal(t, target, execer.argv0)
	assert.Equal(t, []string{"run-job", "--batch", "x"}, execer.argv)
}

func TestHandoff_MissingCommand(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	execer := &fakeExec{}
	err := Handoff([]string{"no-such-command"}, execer.exec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-command")
	assert.False(t, execer.called)
}

func TestHandoff_MissingPathCommand(t *testing.T) {
	execer := &fakeExec{}
	err := Handoff([]string{"/no/such/binary", "arg"}, execer.exec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/no/such/binary")
	assert.False(t, execer.called)
}

func TestHandoff_ExecFailureIsReported(t *testing.T) {
	binDir := t.TempDir()
	target := filepath.Join(binDir, "run-job")
	require.NoError(t, os.WriteFile(target, []byte("#!/bin/sh\nexit 0\n"), 0755))
	t.Setenv("PATH", binDir)

	execer := &fakeExec{err: errors.New("exec format error")}
	err := Handoff([]string{"run-job"}, execer.exec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec format error")
}
