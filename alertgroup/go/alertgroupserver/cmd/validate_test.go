package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CheckedInLocalConfig(t *testing.T) {
	// The checked in config refers to the sheriff config relative to the
	// root of the repo.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir("../../../.."))
	defer func() { require.NoError(t, os.Chdir(wd)) }()

	var out bytes.Buffer
	validateCmd.SetOut(&out)
	require.NoError(t, validateCmd.RunE(validateCmd, []string{"./alertgroup/configs/local.json"}))
	assert.Contains(t, out.String(), "is valid")
}

func TestValidate_MissingSheriffConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(filename, []byte(`{
  "database": {"local": true},
  "workflow": {"service_account": "sa@example.com"},
  "issue_tracker": {"url": "http://issues"},
  "bisection": {"url": "http://pinpoint"},
  "revision": {"numbering_url": "http://crrev", "repo_url": "http://repo"},
  "sheriff_config": {"path": "`+filepath.Join(dir, "missing.yaml")+`"}
}`), 0644))
	require.Error(t, validateCmd.RunE(validateCmd, []string{filename}))
}
