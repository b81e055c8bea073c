package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectGarbage(t *testing.T) {
	env := newEnv(t, defaults())
	s := env.loaded(t)

	require.NoError(t, env.files.WriteImage("live.png", []byte("x")))
	require.NoError(t, env.files.WriteImage("orphan.png", []byte("x")))
	require.NoError(t, env.files.SaveText("t", "long"))
	require.NoError(t, env.files.SaveText("old", "long"))
	_, err := env.files.SaveIcon("gone", "ico", []byte("x"))
	require.NoError(t, err)
	_, err = env.files.SaveIcon("u", "ico", []byte("x"))
	require.NoError(t, err)

	insert(t, s,
		types.NewItem("i", 1, "hi", &types.ImagePayload{ImageFilename: "live.png"}),
		types.NewItem("t", 1, "ht", &types.TextPayload{Preview: "long", HasFullContent: true}),
		types.NewItem("u", 1, "hu", &types.URLPayload{URL: "https://a.com", IconFilename: "u.ico"}))
	require.NoError(t, s.Pin("u"))

	report, err := s.CollectGarbage(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(6), report.Scanned)
	assert.Equal(t, int64(3), report.Removed)
	assert.Zero(t, report.Failed)

	for _, ref := range []types.FileRef{
		{Dir: types.DirImages, Name: "live.png"},
		{Dir: types.DirTexts, Name: "t.txt"},
		{Dir: types.DirLinkPreviews, Name: "u.ico"},
	} {
		assert.True(t, env.files.Exists(ref), ref.Name)
	}
	for _, ref := range []types.FileRef{
		{Dir: types.DirImages, Name: "orphan.png"},
		{Dir: types.DirTexts, Name: "old.txt"},
		{Dir: types.DirLinkPreviews, Name: "gone.ico"},
	} {
		assert.False(t, env.files.Exists(ref), ref.Name)
	}
}

func TestCollectGarbageGracePeriod(t *testing.T) {
	env := newEnv(t, defaults())
	s := env.loaded(t)
	require.NoError(t, env.files.WriteImage("fresh.png", []byte("x")))
	require.NoError(t, env.files.WriteImage("stale.png", []byte("x")))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(env.files.Path(types.FileRef{Dir: types.DirImages, Name: "stale.png"}), old, old))

	report, err := s.CollectGarbage(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Removed)
	assert.True(t, env.files.Exists(types.FileRef{Dir: types.DirImages, Name: "fresh.png"}))
}

func TestCollectGarbageMissingDirectory(t *testing.T) {
	env := newEnv(t, defaults())
	s := env.loaded(t)
	require.NoError(t, os.RemoveAll(env.files.LinkPreviewsDir))
	require.NoError(t, env.files.WriteImage("orphan.png", []byte("x")))

	report, err := s.CollectGarbage(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Removed)
	assert.Zero(t, report.Failed)
}

func TestCollectGarbageBeforeLoad(t *testing.T) {
	env := newEnv(t, defaults())
	require.NoError(t, env.files.WriteImage("keep.png", []byte("x")))

	_, err := env.open(t).CollectGarbage(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.True(t, env.files.Exists(types.FileRef{Dir: types.DirImages, Name: "keep.png"}))
}
