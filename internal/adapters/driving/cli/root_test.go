package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditrust/credirag/internal/logger"
)

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"verbose", "config", "env-file"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "v", rootCmd.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"index", "search", "ask", "chat", "mcp", "settings", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_VerboseEnablesDebugLogs(t *testing.T) {
	t.Cleanup(func() { logger.SetVerbose(false) })

	_, err := runCLI(t, newFakeApp(), "", "--verbose", "version")

	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}

func TestRootCmd_ConfigDirReachesFactory(t *testing.T) {
	var got Config
	SetAppFactory(func(cfg Config) (App, error) {
		got = cfg
		return newFakeApp(), nil
	})
	t.Cleanup(func() {
		SetAppFactory(nil)
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"--env-file", "", "--config", "/etc/credirag", "settings", "keys"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "/etc/credirag", got.ConfigDir)
}

func TestRootCmd_FactoryError(t *testing.T) {
	SetAppFactory(func(Config) (App, error) { return nil, errors.New("bad config file") })
	t.Cleanup(func() {
		SetAppFactory(nil)
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"--env-file", "", "settings", "show"})
	err := rootCmd.Execute()

	assert.EqualError(t, err, "bad config file")
}

func TestRootCmd_LoadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CREDIRAG_TEST_TOKEN=from-file\n"), 0o600))
	t.Setenv("CREDIRAG_TEST_TOKEN", "")
	require.NoError(t, os.Unsetenv("CREDIRAG_TEST_TOKEN"))

	_, err := runCLI(t, newFakeApp(), "", "--env-file", path, "version")

	require.NoError(t, err)
	assert.Equal(t, "from-file", os.Getenv("CREDIRAG_TEST_TOKEN"))
}

func TestRootCmd_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := runCLI(t, newFakeApp(), "", "--env-file", filepath.Join(t.TempDir(), "absent.env"), "version")
	assert.NoError(t, err)
}

func TestExecute_ClosesApp(t *testing.T) {
	a := newFakeApp()
	SetAppFactory(func(Config) (App, error) { return a, nil })
	t.Cleanup(func() {
		SetAppFactory(nil)
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"--env-file", "", "settings", "keys"})
	require.NoError(t, Execute(t.Context()))

	assert.True(t, a.closed)
}
