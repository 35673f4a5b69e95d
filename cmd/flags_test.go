package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRootCommandFlags tests that all expected CLI flags are present
func TestRootCommandFlags(t *testing.T) {
	serverFlag := rootCmd.PersistentFlags().Lookup("server")
	assert.NotNil(t, serverFlag)
	assert.Equal(t, "string", serverFlag.Value.Type())

	logLevelFlag := rootCmd.PersistentFlags().Lookup("log-level")
	assert.NotNil(t, logLevelFlag)
	assert.Equal(t, "string", logLevelFlag.Value.Type())

	promptFlag := rootCmd.Flags().Lookup("prompt")
	assert.NotNil(t, promptFlag)
	assert.Equal(t, "string", promptFlag.Value.Type())

	sessionFlag := rootCmd.Flags().Lookup("session")
	assert.NotNil(t, sessionFlag)
	assert.Equal(t, "string", sessionFlag.Value.Type())

	filesFlag := rootCmd.Flags().Lookup("files")
	assert.NotNil(t, filesFlag)
	assert.Equal(t, "stringSlice", filesFlag.Value.Type())

	showThinkingFlag := rootCmd.Flags().Lookup("show-thinking")
	assert.NotNil(t, showThinkingFlag)
	assert.Equal(t, "bool", showThinkingFlag.Value.Type())
}

// TestFlagDefaults tests default values of CLI flags
func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, "", rootCmd.Flags().Lookup("prompt").DefValue)
	assert.Equal(t, "", rootCmd.Flags().Lookup("session").DefValue)
	assert.Equal(t, "true", rootCmd.Flags().Lookup("show-thinking").DefValue)
	assert.Equal(t, "info", rootCmd.PersistentFlags().Lookup("log-level").DefValue)
}

// TestSubcommands tests that the management subcommands are registered
func TestSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["sessions"])
	assert.True(t, names["files"])
	assert.True(t, names["feedback"])
}
