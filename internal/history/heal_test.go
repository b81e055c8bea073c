package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/berrythewa/clipvault/internal/classify"
	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/enrich"
	"github.com/berrythewa/clipvault/internal/storage"
	"github.com/berrythewa/clipvault/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEnricher struct {
	files *storage.Files
	icon  []byte
	image []byte
}

func (f *fakeEnricher) Link(_ context.Context, pageURL, id string) (enrich.LinkInfo, error) {
	info := enrich.LinkInfo{Title: pageURL}
	if f.icon == nil {
		return info, enrich.ErrNoIcon
	}
	name, err := f.files.SaveIcon(id, "png", f.icon)
	info.IconFilename = name
	return info, err
}

func (f *fakeEnricher) ProviderIcon(ctx context.Context, email, id string) (string, error) {
	info, err := f.Link(ctx, "https://example.com", id)
	return info.IconFilename, err
}

func (f *fakeEnricher) FetchImage(context.Context, string) ([]byte, string, error) {
	if f.image == nil {
		return nil, "", errors.New("unreachable")
	}
	return f.image, "image/png", nil
}

func heal(t *testing.T, s *Store, e Enricher) HealReport {
	t.Helper()
	report, err := NewHealer(s, e, 2, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	return report
}

func TestHealImage(t *testing.T) {
	t.Run("FromSourceFile", func(t *testing.T) {
		env := newEnv(t, defaults())
		s := env.loaded(t)
		src := filepath.Join(env.dir, "photo.png")
		require.NoError(t, os.WriteFile(src, []byte("pixels"), 0644))
		insert(t, s, types.NewItem("i", 1, "hi", &types.ImagePayload{ImageFilename: "1_i.png", FileURI: classify.FileURI(src)}))
		c := watch(s)

		report := heal(t, s, nil)
		assert.Equal(t, 1, report.Restored)
		data, err := os.ReadFile(filepath.Join(env.files.ImagesDir, "1_i.png"))
		require.NoError(t, err)
		assert.Equal(t, "pixels", string(data))
		assert.Equal(t, int32(1), c.history.Load())

		// Nothing left to do.
		report = heal(t, s, nil)
		assert.False(t, report.changed())
		assert.Equal(t, int32(1), c.history.Load())
	})

	t.Run("FromSourceURL", func(t *testing.T) {
		env := newEnv(t, defaults())
		s := env.loaded(t)
		insert(t, s, types.NewItem("i", 1, "hi", &types.ImagePayload{ImageFilename: "1_i.png", SourceURL: "https://a.com/x.png"}))

		report := heal(t, s, &fakeEnricher{files: env.files, image: []byte("downloaded")})
		assert.Equal(t, 1, report.Restored)
		assert.True(t, env.files.Exists(types.FileRef{Dir: types.DirImages, Name: "1_i.png"}))
	})

	t.Run("Unrecoverable", func(t *testing.T) {
		env := newEnv(t, defaults())
		s := env.loaded(t)
		insert(t, s, types.NewItem("i", 1, "hi", &types.ImagePayload{
			ImageFilename: "1_i.png",
			FileURI:       classify.FileURI(filepath.Join(env.dir, "gone.png")),
			SourceURL:     "https://a.com/x.png",
		}))
		require.NoError(t, s.Pin("i"))
		c := watch(s)

		report := heal(t, s, &fakeEnricher{files: env.files})
		assert.Equal(t, 1, report.Corrupted)
		got, _ := s.Get("i")
		assert.True(t, got.IsCorrupted)
		assert.Equal(t, int32(1), c.pinned.Load())
		assert.Equal(t, int32(0), c.history.Load())

		report = heal(t, s, &fakeEnricher{files: env.files})
		assert.False(t, report.changed())
		assert.Equal(t, int32(1), c.pinned.Load())
	})

	t.Run("FlagLiftedWhenFileReturns", func(t *testing.T) {
		env := newEnv(t, defaults())
		s := env.loaded(t)
		require.NoError(t, env.files.WriteImage("1_i.png", []byte("x")))
		item := types.NewItem("i", 1, "hi", &types.ImagePayload{ImageFilename: "1_i.png"})
		item.IsCorrupted = true
		insert(t, s, item)

		report := heal(t, s, nil)
		assert.Equal(t, 1, report.Recovered)
		got, _ := s.Get("i")
		assert.False(t, got.IsCorrupted)
	})
}

func TestHealIcons(t *testing.T) {
	newItems := func() []types.Item {
		return []types.Item{
			types.NewItem("u", 1, "hu", &types.URLPayload{URL: "https://a.com", Title: "A", IconFilename: "u.ico"}),
			types.NewItem("e", 1, "he", &types.ContactPayload{Subtype: types.ContactEmail, Text: "me@a.com", Preview: "me@a.com", IconFilename: "e.ico"}),
		}
	}

	t.Run("Rederived", func(t *testing.T) {
		env := newEnv(t, defaults())
		s := env.loaded(t)
		insert(t, s, newItems()...)

		report := heal(t, s, &fakeEnricher{files: env.files, icon: []byte("icon")})
		assert.Equal(t, 2, report.Restored)
		u, _ := s.Get("u")
		assert.Equal(t, "u.png", u.Payload.(*types.URLPayload).IconFilename)
		e, _ := s.Get("e")
		assert.Equal(t, "e.png", e.Payload.(*types.ContactPayload).IconFilename)
		assert.False(t, u.IsCorrupted)
	})

	t.Run("ClearedOnFailure", func(t *testing.T) {
		env := newEnv(t, defaults())
		s := env.loaded(t)
		insert(t, s, newItems()...)

		report := heal(t, s, &fakeEnricher{files: env.files})
		assert.Equal(t, 2, report.Cleared)
		assert.Zero(t, report.Corrupted)
		u, _ := s.Get("u")
		assert.Empty(t, u.Payload.(*types.URLPayload).IconFilename)
		assert.False(t, u.IsCorrupted)

		report = heal(t, s, nil)
		assert.False(t, report.changed())
	})
}

func TestHealGradient(t *testing.T) {
	env := newEnv(t, defaults())
	s := env.loaded(t)
	insert(t, s,
		types.NewItem("g", 1, "hg", &types.ColorPayload{
			Subtype:          types.ColorGradient,
			ColorValue:       "linear-gradient(90deg, #ff0000, #0000ff)",
			FormatType:       "Linear Gradient",
			Colors:           []string{"#ff0000", "#0000ff"},
			GradientFilename: storage.GradientFilename("hg"),
		}),
		types.NewItem("p", 1, "hp", &types.ColorPayload{
			Subtype:          types.ColorPalette,
			ColorValue:       "#00ff00 #ffffff",
			FormatType:       "Palette",
			GradientFilename: storage.GradientFilename("hp"),
		}),
		types.NewItem("bad", 1, "hbad", &types.ColorPayload{
			Subtype:          types.ColorGradient,
			ColorValue:       "linear-gradient(red, blue)",
			FormatType:       "Linear Gradient",
			GradientFilename: storage.GradientFilename("hbad"),
		}))

	report := heal(t, s, nil)
	assert.Equal(t, 2, report.Restored)
	assert.Equal(t, 1, report.Corrupted)
	assert.True(t, env.files.Exists(types.FileRef{Dir: types.DirImages, Name: storage.GradientFilename("hg")}))
	assert.True(t, env.files.Exists(types.FileRef{Dir: types.DirImages, Name: storage.GradientFilename("hp")}))
	bad, _ := s.Get("bad")
	assert.True(t, bad.IsCorrupted)

	assert.False(t, heal(t, s, nil).changed())
}

func TestHealSideCar(t *testing.T) {
	env := newEnv(t, defaults())
	s := env.loaded(t)
	require.NoError(t, env.files.SaveText("kept", "full"))
	insert(t, s,
		types.NewItem("kept", 1, "hk", &types.TextPayload{Preview: "full", HasFullContent: true}),
		types.NewItem("lost", 1, "hl", &types.CodePayload{Preview: "x", HasFullContent: true, RawLines: 40}),
		textItem("inline", "short text"))

	report := heal(t, s, nil)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 1, report.Corrupted)
	lost, _ := s.Get("lost")
	assert.True(t, lost.IsCorrupted)
	kept, _ := s.Get("kept")
	assert.False(t, kept.IsCorrupted)
}

func TestHealBeforeLoad(t *testing.T) {
	s := newEnv(t, config.SettingsConfig{}).open(t)
	_, err := NewHealer(s, nil, 0, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)
}
