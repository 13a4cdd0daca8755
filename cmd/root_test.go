package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Metadata(t *testing.T) {
	assert.Equal(t, "property-advisor", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.True(t, rootCmd.SilenceUsage)
	assert.NotNil(t, rootCmd.PersistentPreRunE)
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"recommend", "afford", "search", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestSubcommandFlags(t *testing.T) {
	tests := []struct {
		cmd   string
		flags []string
	}{
		{"recommend", []string{"query", "income", "history", "format"}},
		{"afford", []string{"price", "income", "down", "format"}},
		{"search", []string{"location", "format"}},
		{"serve", []string{"port"}},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			c, _, err := rootCmd.Find([]string{tt.cmd})
			require.NoError(t, err)
			for _, f := range tt.flags {
				assert.NotNil(t, c.Flags().Lookup(f), "flag --%s", f)
			}
		})
	}
}
