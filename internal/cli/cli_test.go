package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	app := New()
	app.SetVersion("1.2.3", "abc123", "2026-01-01")

	var out bytes.Buffer
	app.rootCmd.SetOut(&out)
	app.rootCmd.SetArgs([]string{"version"})

	require.NoError(t, app.Execute())
	assert.Contains(t, out.String(), "unitd version 1.2.3")
	assert.Contains(t, out.String(), "commit: abc123")
}

func TestVersionCommand_Defaults(t *testing.T) {
	app := New()

	var out bytes.Buffer
	app.rootCmd.SetOut(&out)
	app.rootCmd.SetArgs([]string{"version"})

	require.NoError(t, app.Execute())
	assert.Contains(t, out.String(), "unitd version dev")
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	app := New()

	names := map[string]bool{}
	for _, cmd := range app.rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{
		"daemon", "demo", "jobs", "start", "stop", "restart", "reload", "cancel", "version",
	} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestCancelCommand_InvalidID(t *testing.T) {
	app := New()
	app.rootCmd.SetArgs([]string{"cancel", "not-a-number"})

	err := app.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid job id")
}
