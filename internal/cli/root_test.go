package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/storage"
	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func textItem(id, text string) types.Item {
	return types.NewItem(id, 1, utils.HashString(text), &types.TextPayload{Preview: text, Text: text})
}

// setup writes a default config under a temp data directory and seeds the
// history snapshot with two entries.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CLIPVAULT_DATA_DIR", dir)
	t.Setenv("CLIPVAULT_LOG_LEVEL", "error")

	path := filepath.Join(dir, "config.yaml")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	snap := storage.NewSnapshot(cfg.Paths.HistoryFile, zap.NewNop())
	require.NoError(t, snap.Save([]types.Item{textItem("a", "alpha"), textItem("b", "beta")}))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestHistoryCommands(t *testing.T) {
	path := setup(t)

	out, err := execute(t, "--config", path, "history", "list", "--no-colors")
	require.NoError(t, err)
	assert.Contains(t, out, "History (2)")
	assert.Contains(t, out, "alpha")

	out, err = execute(t, "--config", path, "history", "pin", "b")
	require.NoError(t, err)
	assert.Equal(t, "Pinned b\n", out)

	out, err = execute(t, "--config", path, "history", "list", "--pinned", "--json")
	require.NoError(t, err)
	var pinned []types.Item
	require.NoError(t, json.Unmarshal([]byte(out), &pinned))
	require.Len(t, pinned, 1)
	assert.Equal(t, "b", pinned[0].ID)

	out, err = execute(t, "--config", path, "history", "show", "a")
	require.NoError(t, err)
	assert.Equal(t, "alpha\n", out)

	_, err = execute(t, "--config", path, "history", "delete", "a")
	require.NoError(t, err)
	_, err = execute(t, "--config", path, "history", "delete", "a")
	assert.ErrorContains(t, err, "failed to delete a")

	out, err = execute(t, "--config", path, "history", "list", "--no-colors")
	require.NoError(t, err)
	assert.Equal(t, "History: empty\n", out)

	out, err = execute(t, "--config", path, "history", "clear", "--pinned")
	require.NoError(t, err)
	assert.Equal(t, "Pinned list cleared\n", out)

	out, err = execute(t, "--config", path, "history", "list", "-p", "--no-colors")
	require.NoError(t, err)
	assert.Equal(t, "Pinned: empty\n", out)
}

func TestHistoryListLimit(t *testing.T) {
	path := setup(t)

	out, err := execute(t, "--config", path, "history", "list", "-n", "1", "--compact", "--no-colors")
	require.NoError(t, err)
	assert.Contains(t, out, "History (1)")
	assert.Contains(t, out, "alpha")
	assert.NotContains(t, out, "beta")
}

func TestMaintenanceCommands(t *testing.T) {
	path := setup(t)

	out, err := execute(t, "--config", path, "heal", "--no-colors")
	require.NoError(t, err)
	assert.Contains(t, out, "Integrity pass")
	assert.Regexp(t, `Checked:\s+2\n`, out)
	assert.Regexp(t, `Corrupted:\s+0\n`, out)

	out, err = execute(t, "--config", path, "gc", "--grace", "0s", "--no-colors")
	require.NoError(t, err)
	assert.Contains(t, out, "Garbage collection")
	assert.Regexp(t, `Removed:\s+0\n`, out)
}

func TestConfigCommands(t *testing.T) {
	path := setup(t)

	out, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_history_items: 100")

	out, err = execute(t, "--config", path, "config", "show", "-f", "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "settings")

	_, err = execute(t, "--config", path, "config", "show", "-f", "toml")
	assert.ErrorContains(t, err, "unsupported format")

	out, err = execute(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}

func TestVersionCommand(t *testing.T) {
	path := setup(t)
	SetVersionInfo("1.2.3", "today", "abc")

	out, err := execute(t, "--config", path, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    1.2.3")
	assert.Contains(t, out, "Commit:     abc")
}
