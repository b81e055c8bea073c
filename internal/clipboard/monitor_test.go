package clipboard

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/berrythewa/clipvault/internal/classify"
	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/enrich"
	"github.com/berrythewa/clipvault/internal/history"
	"github.com/berrythewa/clipvault/internal/mocks"
	"github.com/berrythewa/clipvault/internal/platform"
	"github.com/berrythewa/clipvault/internal/storage"
	"github.com/berrythewa/clipvault/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type fixture struct {
	clip  *mocks.MockClipboard
	store *history.Store
	files *storage.Files
	mon   *Monitor
}

type fakeEnricher struct {
	files *storage.Files
	title string
}

func (f *fakeEnricher) Link(_ context.Context, _ string, id string) (enrich.LinkInfo, error) {
	name, err := f.files.SaveIcon(id, "png", []byte("icon"))
	return enrich.LinkInfo{Title: f.title, IconFilename: name}, err
}

func (f *fakeEnricher) ProviderIcon(_ context.Context, _ string, id string) (string, error) {
	return f.files.SaveIcon(id, "ico", []byte("icon"))
}

func newFixture(t *testing.T, enricher Enricher) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	files := storage.NewFiles(filepath.Join(dir, "images"), filepath.Join(dir, "texts"), filepath.Join(dir, "link-previews"))
	require.NoError(t, files.Ensure())
	store, err := history.NewStore(history.Options{
		HistoryFile: filepath.Join(dir, "history.json"),
		PinnedFile:  filepath.Join(dir, "pinned.json"),
		Files:       files,
		Settings:    config.NewSettings(config.SettingsConfig{MaxHistoryItems: 10, UpdateRecencyOnCopy: true}),
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	_, err = store.Load()
	require.NoError(t, err)

	clip := mocks.NewMockClipboard(ctrl)
	limits := config.DefaultConfig().Classifier
	limits.InlineTextLimit = 20
	mon := NewMonitor(Options{
		Clipboard: clip,
		Pipeline:  classify.NewPipeline(classify.Options{Limits: limits}),
		Store:     store,
		Files:     files,
		Enricher:  enricher,
		Monitor: config.MonitorConfig{
			Debounce:        20 * time.Millisecond,
			RetryAttempts:   3,
			RetryDelay:      time.Millisecond,
			PollingInterval: 5,
		},
		MaxImageBytes: 1 << 20,
		Logger:        zap.NewNop(),
	})
	t.Cleanup(mon.Stop)
	return &fixture{clip: clip, store: store, files: files, mon: mon}
}

func (f *fixture) offerText(text string) {
	f.clip.EXPECT().Formats(gomock.Any()).Return([]string{platform.MIMEText}, nil)
	f.clip.EXPECT().Text(gomock.Any()).Return(text, nil)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))))
	return buf.Bytes()
}

func TestProcessText(t *testing.T) {
	f := newFixture(t, nil)
	f.offerText("hello world")

	require.NoError(t, f.mon.Process(context.Background()))
	items := f.store.HistoryItems()
	require.Len(t, items, 1)
	assert.Equal(t, types.KindText, items[0].Type)
	assert.Equal(t, "hello world", items[0].Payload.(*types.TextPayload).Text)
}

func TestProcessLongTextWritesSideCar(t *testing.T) {
	f := newFixture(t, nil)
	long := strings.Repeat("lorem ipsum ", 10)
	f.offerText(long)

	require.NoError(t, f.mon.Process(context.Background()))
	items := f.store.HistoryItems()
	require.Len(t, items, 1)
	p := items[0].Payload.(*types.TextPayload)
	assert.True(t, p.HasFullContent)

	content, ok := f.store.GetContent(items[0].ID)
	require.True(t, ok)
	assert.Equal(t, long, content)
}

func TestProcessImageBeforeText(t *testing.T) {
	f := newFixture(t, nil)
	data := pngBytes(t)
	f.clip.EXPECT().Formats(gomock.Any()).Return([]string{"image/png", platform.MIMEText}, nil)
	f.clip.EXPECT().Bytes(gomock.Any(), "image/png").Return(data, nil)

	require.NoError(t, f.mon.Process(context.Background()))
	items := f.store.HistoryItems()
	require.Len(t, items, 1)
	p := items[0].Payload.(*types.ImagePayload)
	assert.Equal(t, 3, p.Width)
	assert.Equal(t, 2, p.Height)
	assert.True(t, strings.HasSuffix(p.ImageFilename, ".png"))
	assert.True(t, f.files.Exists(types.FileRef{Dir: types.DirImages, Name: p.ImageFilename}))
}

func TestProcessFileURI(t *testing.T) {
	f := newFixture(t, nil)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	f.clip.EXPECT().Formats(gomock.Any()).Return([]string{platform.MIMEURIList, platform.MIMEText}, nil)
	f.clip.EXPECT().Bytes(gomock.Any(), platform.MIMEURIList).Return([]byte(classify.FileURI(path)+"\r\n"), nil)

	require.NoError(t, f.mon.Process(context.Background()))
	items := f.store.HistoryItems()
	require.Len(t, items, 1)
	p := items[0].Payload.(*types.FilePayload)
	assert.Equal(t, "notes.txt", p.Preview)
}

func TestProcessRetriesUntilSettled(t *testing.T) {
	f := newFixture(t, nil)
	f.clip.EXPECT().Formats(gomock.Any()).Return(nil, nil).Times(3)
	gomock.InOrder(
		f.clip.EXPECT().Text(gomock.Any()).Return("", platform.ErrEmpty).Times(2),
		f.clip.EXPECT().Text(gomock.Any()).Return("late", nil),
	)

	require.NoError(t, f.mon.Process(context.Background()))
	assert.Len(t, f.store.HistoryItems(), 1)
}

func TestProcessGivesUpQuietly(t *testing.T) {
	f := newFixture(t, nil)
	f.clip.EXPECT().Formats(gomock.Any()).Return(nil, nil).Times(4)
	f.clip.EXPECT().Text(gomock.Any()).Return("", platform.ErrEmpty).Times(4)

	require.NoError(t, f.mon.Process(context.Background()))
	assert.Empty(t, f.store.HistoryItems())
}

func TestProcessSameContentTwice(t *testing.T) {
	f := newFixture(t, nil)
	f.offerText("alpha")
	f.offerText("beta")
	f.offerText("alpha")

	for i := 0; i < 3; i++ {
		require.NoError(t, f.mon.Process(context.Background()))
	}
	items := f.store.HistoryItems()
	require.Len(t, items, 2)
	assert.Equal(t, "alpha", items[0].Payload.(*types.TextPayload).Text)
}

func TestProcessGradient(t *testing.T) {
	f := newFixture(t, nil)
	f.offerText("linear-gradient(90deg, #ff0000, #0000ff)")

	require.NoError(t, f.mon.Process(context.Background()))
	items := f.store.HistoryItems()
	require.Len(t, items, 1)
	p := items[0].Payload.(*types.ColorPayload)
	assert.Equal(t, types.ColorGradient, p.Subtype)
	assert.Equal(t, storage.GradientFilename(items[0].Hash), p.GradientFilename)
	assert.True(t, f.files.Exists(types.FileRef{Dir: types.DirImages, Name: p.GradientFilename}))
}

func TestEnrichment(t *testing.T) {
	t.Run("URL", func(t *testing.T) {
		f := newFixture(t, nil)
		f.mon.enricher = &fakeEnricher{files: f.files, title: "Example Domain"}
		f.offerText("https://example.com/page")

		require.NoError(t, f.mon.Process(context.Background()))
		f.mon.Stop()

		items := f.store.HistoryItems()
		require.Len(t, items, 1)
		p := items[0].Payload.(*types.URLPayload)
		assert.Equal(t, "Example Domain", p.Title)
		assert.Equal(t, items[0].ID+".png", p.IconFilename)
	})

	t.Run("Email", func(t *testing.T) {
		f := newFixture(t, nil)
		f.mon.enricher = &fakeEnricher{files: f.files}
		f.offerText("someone@example.com")

		require.NoError(t, f.mon.Process(context.Background()))
		f.mon.Stop()

		items := f.store.HistoryItems()
		require.Len(t, items, 1)
		assert.Equal(t, items[0].ID+".ico", items[0].Payload.(*types.ContactPayload).IconFilename)
	})
}

func TestChangedDebounces(t *testing.T) {
	f := newFixture(t, nil)
	f.offerText("final")

	for i := 0; i < 5; i++ {
		f.mon.Changed()
	}
	assert.Eventually(t, func() bool { return len(f.store.HistoryItems()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestPausedDropsChanges(t *testing.T) {
	f := newFixture(t, nil)

	// No clipboard reads are expected at all.
	f.mon.Changed()
	f.mon.SetPaused(true)
	f.mon.Changed()
	assert.True(t, f.mon.Paused())
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, f.store.HistoryItems())
}

func TestStartPollsForChanges(t *testing.T) {
	f := newFixture(t, nil)

	var mu sync.Mutex
	current := "already there"
	f.clip.EXPECT().Formats(gomock.Any()).Return([]string{platform.MIMEText}, nil).AnyTimes()
	f.clip.EXPECT().Text(gomock.Any()).DoAndReturn(func(context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		return current, nil
	}).AnyTimes()

	require.NoError(t, f.mon.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.store.HistoryItems(), "content present at start is not captured")

	mu.Lock()
	current = "copied later"
	mu.Unlock()

	assert.Eventually(t, func() bool {
		items := f.store.HistoryItems()
		return len(items) == 1 && items[0].Payload.(*types.TextPayload).Text == "copied later"
	}, time.Second, 5*time.Millisecond)
	f.mon.Stop()
}
