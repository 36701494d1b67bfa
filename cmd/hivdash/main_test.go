package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/hivdash/internal/core"
	"github.com/JonMunkholm/hivdash/internal/core/coretest"
	"github.com/JonMunkholm/hivdash/internal/core/sources"
)

func writeDataDir(t *testing.T) string {
	t.Helper()
	reg, err := sources.Default()
	require.NoError(t, err)

	dir := t.TempDir()
	raw := coretest.Raw()
	for _, def := range reg.All() {
		f, err := os.Create(filepath.Join(dir, def.Info.File))
		require.NoError(t, err)
		w := csv.NewWriter(f)
		require.NoError(t, w.Write(raw[def.Info.Key].Header))
		require.NoError(t, w.WriteAll(raw[def.Info.Key].Rows))
		require.NoError(t, f.Close())
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCheck(t *testing.T) {
	t.Setenv("DATA_DIR", writeDataDir(t))

	out, err := run(t, "check")
	require.NoError(t, err)
	assert.Equal(t, "ok: 7 sources, 2 countries, years 1990-2020\n", out)
}

func TestCheck_MissingFiles(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())

	_, err := run(t, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SRC002")
}

func TestCatalog(t *testing.T) {
	t.Setenv("DATA_DIR", writeDataDir(t))

	out, err := run(t, "catalog", "--indent=false")
	require.NoError(t, err)

	var cat core.Catalog
	require.NoError(t, json.Unmarshal([]byte(out), &cat))
	assert.Equal(t, []string{"Kenya", "Vietnam"}, cat.Countries)
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("DATA_DRIVER", "sqlite")

	_, err := run(t, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATA_DRIVER")
}
