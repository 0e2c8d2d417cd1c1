package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setLocalEnv(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "files"), 0o755))

	t.Setenv("CLOUDSTORAGE_DRIVER", "LOCAL")
	t.Setenv("CLOUDSTORAGE_CONTAINER_NAME", "files")
	t.Setenv("CLOUDSTORAGE_DRIVER_OPTIONS", `{"path": "`+root+`", "public_url": "http://files.test"}`)
	t.Setenv("URL_CACHE_TTL", "0s")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

func TestObjectCommands(t *testing.T) {
	root := setLocalEnv(t)
	const id = "6f1c1a3e-2b4d-4c5e-9f70-1a2b3c4d5e6f"

	src := filepath.Join(t.TempDir(), "Annual Report.CSV")
	require.NoError(t, os.WriteFile(src, []byte("year,total\n2024,1\n"), 0o600))

	out, err := run(t, "put", id, src)
	require.NoError(t, err)
	assert.Equal(t, "resources/"+id+"/annual-report.csv", out)
	assert.FileExists(t, filepath.Join(root, "files", "resources", id, "annual-report.csv"))

	out, err = run(t, "url", id, "Annual Report.CSV")
	require.NoError(t, err)
	assert.Equal(t, "http://files.test/files/resources/"+id+"/annual-report.csv", out)

	_, err = run(t, "rm", id, "annual-report.csv")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root, "files", "resources", id, "annual-report.csv"))

	_, err = run(t, "url", id, "annual-report.csv")
	require.ErrorIs(t, err, errNoURL)

	// A second delete of the same file is not an error.
	_, err = run(t, "rm", id, "annual-report.csv")
	require.NoError(t, err)
}

func TestPut_InvalidResourceID(t *testing.T) {
	setLocalEnv(t)

	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o600))

	_, err := run(t, "put", "../escape", src)
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	setLocalEnv(t)

	out, err := run(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "driver:      LOCAL")
	assert.Contains(t, out, "storage:")
	assert.Contains(t, out, "healthy")
}

func TestCheck_UnknownProvider(t *testing.T) {
	setLocalEnv(t)
	t.Setenv("CLOUDSTORAGE_DRIVER", "FTP")

	_, err := run(t, "check")
	require.Error(t, err)
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	setLocalEnv(t)

	_, err := run(t, "migrate")
	require.ErrorIs(t, err, errDatabaseRequired)
}
