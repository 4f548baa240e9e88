package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral-engine/internal/config"
	"referral-engine/internal/domain"
)

const transcript = "[01/02/24, 8:00 AM] Ann: I recommend Fast Fix 555-000-1111\n" +
	"[01/02/24, 8:01 AM] Ben: thanks!\n"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestIngest_ProcessesAndDeletes(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, filepath.Join("uploads", "chat.txt"), transcript)
	writeFile(t, filepath.Join("uploads", "quiet.txt"), "[01/02/24, 8:01 AM] Ben: thanks!\n")

	out, err := run(t, "ingest")
	require.NoError(t, err)

	assert.Contains(t, out, "Processing chat.txt...\n")
	assert.Contains(t, out, "Extracted 1 referrals from chat.txt.\n")
	assert.Contains(t, out, "No referrals found in quiet.txt.\n")

	assert.NoFileExists(t, filepath.Join("uploads", "chat.txt"))
	assert.NoFileExists(t, filepath.Join("uploads", "quiet.txt"))
	assert.FileExists(t, filepath.Join("data", "chat.json"))
	assert.FileExists(t, filepath.Join("data", "chat.csv"))
	assert.NoFileExists(t, filepath.Join("data", "quiet.json"))
}

func TestIngest_DecodeFailureKeepsFile(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, filepath.Join("uploads", "bad.txt"), "\xff\xfe")

	out, err := run(t, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Failed to process bad.txt:")
	assert.FileExists(t, filepath.Join("uploads", "bad.txt"))
}

func TestSearch_PrintsMatches(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, filepath.Join("uploads", "chat.txt"), transcript)
	_, err := run(t, "ingest")
	require.NoError(t, err)

	out, err := run(t, "search", "FAST")
	require.NoError(t, err)

	var got []domain.Referral
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Ann", got[0].Sender)
	assert.Equal(t, "555-000-1111", got[0].Contact)

	out, err = run(t, "search", "nothing like this")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestSearch_RequiresQuery(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "search")
	assert.Error(t, err)
}

func TestFolderOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REFERRALS_FOLDERS_OUTPUT_DIR", "env-out")
	writeFile(t, filepath.Join("in", "chat.txt"), transcript)

	_, err := run(t, "ingest", "--input-dir", "in")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join("env-out", "chat.json"))
	assert.NoDirExists(t, "data")
}

func TestEnvOverridesUploadAndSearch(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REFERRALS_UPLOAD_MAX_BYTES", "2048")
	t.Setenv("REFERRALS_UPLOAD_RATE_PER_SEC", "0.5")
	t.Setenv("REFERRALS_UPLOAD_BURST", "3")
	t.Setenv("REFERRALS_SEARCH_CACHE_SIZE", "0")

	o := &options{v: viper.New()}
	newRootCmd(o)

	cfg, _, err := o.load()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), cfg.Upload.MaxBytes)
	assert.Equal(t, 0.5, cfg.Upload.RatePerSec)
	assert.Equal(t, 3, cfg.Upload.Burst)
	assert.Equal(t, 0, cfg.Search.CacheSize)
}

func TestDotEnvIsLoaded(t *testing.T) {
	t.Chdir(t.TempDir())
	// Setenv restores the variable godotenv sets once the test ends.
	t.Setenv("REFERRALS_FOLDERS_OUTPUT_DIR", "")
	require.NoError(t, os.Unsetenv("REFERRALS_FOLDERS_OUTPUT_DIR"))
	writeFile(t, ".env", "REFERRALS_FOLDERS_OUTPUT_DIR=dotenv-out\n")
	writeFile(t, filepath.Join("uploads", "chat.txt"), transcript)

	_, err := run(t, "ingest")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join("dotenv-out", "chat.json"))
}

func TestInvalidConfigFails(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "ingest", "--input-dir", "same", "--output-dir", "same")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestInit(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote config.yml")

	cfg, err := config.Load("config.yml")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	out, err = run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = run(t, "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote config.yml")
}

func TestConfigFileIsRead(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, "custom.yml", "folders:\n  input_dir: inbox\n  output_dir: results\n")
	writeFile(t, filepath.Join("inbox", "chat.txt"), transcript)

	_, err := run(t, "ingest", "--config", "custom.yml")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join("results", "chat.json"))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "develop\n", out)

	out, err = run(t, "version", "--long")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "develop", info["version"])
}
