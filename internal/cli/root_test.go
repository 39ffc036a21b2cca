package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "lydata", cmd.Use)
	assert.Contains(t, cmd.Long, "canonical three-level format")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"transform", "validate", "query", "portion", "stats", "combine", "list", "import", "select"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestTransformCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	transformCmd, _, err := cmd.Find([]string{"transform"})
	require.NoError(t, err)

	mappingFlag := transformCmd.Flags().Lookup("mapping")
	require.NotNil(t, mappingFlag)
	assert.Equal(t, "m", mappingFlag.Shorthand)

	outputFlag := transformCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestValidateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	validateCmd, _, err := cmd.Find([]string{"validate"})
	require.NoError(t, err)

	collectFlag := validateCmd.Flags().Lookup("collect-all")
	require.NotNil(t, collectFlag)
	assert.Equal(t, "false", collectFlag.DefValue)

	modalityFlag := validateCmd.Flags().Lookup("modality")
	require.NotNil(t, modalityFlag)
	assert.Contains(t, modalityFlag.DefValue, "CT")
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"query", "portion", "stats", "select"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			whereFlag := sub.Flags().Lookup("where")
			require.NotNil(t, whereFlag)
			assert.Equal(t, "w", whereFlag.Shorthand)
		})
	}

	portionCmd, _, err := cmd.Find([]string{"portion"})
	require.NoError(t, err)
	givenFlag := portionCmd.Flags().Lookup("given")
	require.NotNil(t, givenFlag)
	assert.Equal(t, "g", givenFlag.Shorthand)
}

func TestCombineCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	combineCmd, _, err := cmd.Find([]string{"combine"})
	require.NoError(t, err)

	methodFlag := combineCmd.Flags().Lookup("method")
	require.NotNil(t, methodFlag)
	assert.Equal(t, "max_llh", methodFlag.DefValue)

	inferFlag := combineCmd.Flags().Lookup("infer")
	require.NotNil(t, inferFlag)
	assert.Equal(t, "false", inferFlag.DefValue)
}

func TestStoreCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"import", "select"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			dbFlag := sub.Flags().Lookup("db")
			require.NotNil(t, dbFlag)
			// empty means the configured database
			assert.Equal(t, "", dbFlag.DefValue)
		})
	}

	importCmd, _, err := cmd.Find([]string{"import"})
	require.NoError(t, err)
	validateFlag := importCmd.Flags().Lookup("validate")
	require.NotNil(t, validateFlag)
	assert.Equal(t, "true", validateFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "invalid", "list"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr.String(), "must be one of")
}
