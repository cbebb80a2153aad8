package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	expected := []string{"ingest", "ask", "documents", "stats", "history", "check", "reset", "version"}
	for _, name := range expected {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, "subcommand %s not found", name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"config", "data-dir", "tenant", "debug", "json"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing persistent flag %s", name)
	}

	tenant := root.PersistentFlags().Lookup("tenant")
	require.NotNil(t, tenant)
	assert.Equal(t, "default", tenant.DefValue)
}

func TestResetCmd_RequiresForce(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"reset"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}

func TestDocumentsDeleteCmd_RejectsNonNumericID(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"documents", "delete", "not-a-number"})

	err := root.Execute()
	assert.Error(t, err)
}
