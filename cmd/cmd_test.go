package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("MQ_BACKEND", "none")
	t.Setenv("STORAGE_BACKEND", "none")

	// flag variables are package globals and survive between executions
	seedDryRun = false
	shellCommands = nil

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLicenceSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		"AAAA-BBBB-CCCC-DDDD",
		{"key": "BOSS-1111-2222-3333", "role": "Boss"},
		"AAAA-BBBB-CCCC-DDDD"
	]`), 0o600))

	out, err := runRoot(t, "licence", "seed", "--from-json", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "[dry-run] inserted: 3  skipped: 0  errors: 0")

	out, err = runRoot(t, "licence", "seed", "--from-json", path)
	require.NoError(t, err)
	assert.Contains(t, out, "inserted: 2  skipped: 1  errors: 0")
}

func TestLicenceSeedRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"key": "AAAA-BBBB-CCCC-DDDD"}`), 0o600))

	_, err := runRoot(t, "licence", "seed", "--from-json", path)
	require.Error(t, err)
}

func TestShellCommandFlag(t *testing.T) {
	out, err := runRoot(t, "shell",
		"-c", "login --username nobody --password pw",
		"-c", "whoami",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "✗ Error: user 'nobody' not found")
	assert.Contains(t, out, "you must login first")
}
