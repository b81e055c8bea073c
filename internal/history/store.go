package history

import (
	"errors"
	"fmt"
	"sync"

	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/storage"
	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("item not found")
	ErrNotLoaded = errors.New("store has not been loaded")
)

const textCacheSize = 64

// Store holds the history and pinned lists. Every mutation runs under one
// lock, persists the affected snapshots and then, with the lock released,
// deletes evicted side-car files and emits change events.
//
// An id is in at most one list and a hash at most once per list. Both
// lists are most-recent-first.
type Store struct {
	mu       sync.Mutex
	history  []types.Item
	pinned   []types.Item
	loaded   bool
	lastSeen string

	historySnap *storage.Snapshot
	pinnedSnap  *storage.Snapshot
	files       *storage.Files
	settings    *config.Settings
	texts       *lru.Cache[string, string]
	events      *Emitter
	logger      *zap.Logger

	cancelSettings func()
}

// Options configures NewStore.
type Options struct {
	HistoryFile string
	PinnedFile  string
	Files       *storage.Files
	Settings    *config.Settings
	Logger      *zap.Logger
}

func NewStore(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("history")

	if opts.Files == nil || opts.Settings == nil {
		return nil, fmt.Errorf("history store needs files and settings")
	}
	texts, err := lru.New[string, string](textCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create text cache: %w", err)
	}

	s := &Store{
		history:     []types.Item{},
		pinned:      []types.Item{},
		historySnap: storage.NewSnapshot(opts.HistoryFile, logger),
		pinnedSnap:  storage.NewSnapshot(opts.PinnedFile, logger),
		files:       opts.Files,
		settings:    opts.Settings,
		texts:       texts,
		events:      NewEmitter(),
		logger:      logger,
	}
	s.cancelSettings = opts.Settings.OnChange(func(config.SettingsConfig) { s.reapplyLimit() })
	return s, nil
}

// Close detaches the store from settings updates.
func (s *Store) Close() {
	if s.cancelSettings != nil {
		s.cancelSettings()
	}
}

// Subscribe registers fn for ev.
func (s *Store) Subscribe(ev Event, fn func()) (cancel func()) {
	return s.events.Subscribe(ev, fn)
}

// effects is the work a mutation leaves for after the lock is released.
type effects struct {
	history bool
	pinned  bool
	remove  []types.FileRef
}

func (fx *effects) changed(list listID) {
	if list == historyList {
		fx.history = true
	} else {
		fx.pinned = true
	}
}

type listID int

const (
	historyList listID = iota
	pinnedList
)

// LoadReport summarizes Load.
type LoadReport struct {
	History storage.LoadStatus
	Pinned  storage.LoadStatus
	Dropped int // duplicate or cross-listed records discarded
	Pruned  int
}

// Load reads both snapshots. Missing or corrupt files become empty lists.
// Writes are refused until Load has run once.
func (s *Store) Load() (LoadReport, error) {
	history, hs, herr := s.historySnap.Load()
	pinned, ps, perr := s.pinnedSnap.Load()
	if herr != nil {
		s.logger.Error("History snapshot unreadable, starting empty", zap.Error(herr))
	}
	if perr != nil {
		s.logger.Error("Pinned snapshot unreadable, starting empty", zap.Error(perr))
	}

	report := LoadReport{History: hs, Pinned: ps}
	var fx effects

	s.mu.Lock()
	pinned, d1 := dedupe(pinned, nil)
	history, d2 := dedupe(history, pinned)
	report.Dropped = d1 + d2
	s.pinned = pinned
	s.history = history
	s.loaded = true
	s.lastSeen = ""
	s.texts.Purge()

	evicted := s.pruneLocked()
	report.Pruned = len(evicted)
	fx.remove = s.orphanRefsLocked(evicted)
	if report.Dropped > 0 || report.Pruned > 0 {
		fx.history, fx.pinned = true, true
	}
	s.persistLocked(fx)
	s.mu.Unlock()

	s.finish(fx)
	s.logger.Info("History loaded",
		zap.Int("history", len(history)),
		zap.Int("pinned", len(pinned)),
		zap.Stringer("history_status", hs),
		zap.Stringer("pinned_status", ps))
	return report, nil
}

// dedupe keeps the first record per id and per hash, and drops records
// whose id or hash already appears in other.
func dedupe(items []types.Item, other []types.Item) ([]types.Item, int) {
	ids := make(map[string]bool, len(items)+len(other))
	hashes := make(map[string]bool, len(items)+len(other))
	for _, it := range other {
		ids[it.ID] = true
		hashes[it.Hash] = true
	}
	out := make([]types.Item, 0, len(items))
	for _, it := range items {
		if it.Payload == nil || ids[it.ID] || (it.Hash != "" && hashes[it.Hash]) {
			continue
		}
		ids[it.ID] = true
		if it.Hash != "" {
			hashes[it.Hash] = true
		}
		out = append(out, it)
	}
	return out, len(items) - len(out)
}

// Loaded reports whether Load has completed.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// HistoryItems returns a copy of the history list.
func (s *Store) HistoryItems() []types.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.history)
}

// PinnedItems returns a copy of the pinned list.
func (s *Store) PinnedItems() []types.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.pinned)
}

// Get returns a copy of the item with id.
func (s *Store) Get(id string) (types.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if list, i := s.locate(id); i >= 0 {
		return s.list(list)[i].Clone(), true
	}
	return types.Item{}, false
}

// LastSeen is the hash of the most recently handled clipboard content.
func (s *Store) LastSeen() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// InsertResult says what Insert did.
type InsertResult struct {
	ID       string // id of the inserted or matched record
	Inserted bool
}

// Insert adds item to the front of history. If a record with the same
// hash exists it is promoted instead and Inserted is false; the caller
// owns any files it wrote for item.
func (s *Store) Insert(item types.Item) (InsertResult, error) {
	if item.Payload == nil {
		return InsertResult{}, fmt.Errorf("item %s has no payload", item.ID)
	}
	if item.ID == "" {
		item.ID = utils.NewID()
	}
	item.Type = item.Payload.Kind()
	if item.Hash == "" {
		item.Hash = utils.HashString(item.ContentKey())
	}

	var fx effects
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return InsertResult{}, ErrNotLoaded
	}
	s.lastSeen = item.Hash

	if id, ok := s.promoteHashLocked(item.Hash, &fx); ok {
		s.persistLocked(fx)
		s.mu.Unlock()
		s.finish(fx)
		return InsertResult{ID: id}, nil
	}

	s.history = append([]types.Item{item.Clone()}, s.history...)
	fx.history = true
	fx.remove = s.orphanRefsLocked(s.pruneLocked())
	s.persistLocked(fx)
	s.mu.Unlock()

	s.finish(fx)
	s.logger.Debug("Item inserted", zap.String("id", item.ID), zap.String("type", string(item.Type)))
	return InsertResult{ID: item.ID, Inserted: true}, nil
}

// PromoteHash applies the re-copy rules to an existing record with hash,
// if any, and reports its id. The monitor calls it before writing any
// files for new content.
func (s *Store) PromoteHash(hash string) (string, bool, error) {
	var fx effects
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return "", false, ErrNotLoaded
	}
	id, ok := s.promoteHashLocked(hash, &fx)
	if ok {
		s.lastSeen = hash
	}
	s.persistLocked(fx)
	s.mu.Unlock()

	s.finish(fx)
	return id, ok, nil
}

// promoteHashLocked handles a re-copy of existing content. A history hit
// always moves to the front. A pinned hit moves to the front of pinned
// only when recency-on-copy is enabled.
func (s *Store) promoteHashLocked(hash string, fx *effects) (string, bool) {
	if i := indexByHash(s.history, hash); i >= 0 {
		id := s.history[i].ID
		if i > 0 {
			s.history = moveToFront(s.history, i)
			fx.history = true
		}
		return id, true
	}
	if i := indexByHash(s.pinned, hash); i >= 0 {
		id := s.pinned[i].ID
		if i > 0 && s.settings.UpdateRecencyOnCopy() {
			s.pinned = moveToFront(s.pinned, i)
			fx.pinned = true
		}
		return id, true
	}
	return "", false
}

// Pin moves a history item to the front of pinned.
func (s *Store) Pin(id string) error {
	var fx effects
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	list, i := s.locate(id)
	switch {
	case i < 0:
		s.mu.Unlock()
		return ErrNotFound
	case list == pinnedList:
		s.mu.Unlock()
		return nil
	}
	item := s.history[i]
	s.history = removeAt(s.history, i)
	s.pinned = append([]types.Item{item}, s.pinned...)
	fx.history, fx.pinned = true, true
	s.persistLocked(fx)
	s.mu.Unlock()

	s.finish(fx)
	return nil
}

// Unpin moves a pinned item to the front of history and re-applies the
// history limit.
func (s *Store) Unpin(id string) error {
	var fx effects
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	list, i := s.locate(id)
	switch {
	case i < 0:
		s.mu.Unlock()
		return ErrNotFound
	case list == historyList:
		s.mu.Unlock()
		return nil
	}
	s.unpinLocked(i, &fx)
	s.persistLocked(fx)
	s.mu.Unlock()

	s.finish(fx)
	return nil
}

func (s *Store) unpinLocked(i int, fx *effects) {
	item := s.pinned[i]
	s.pinned = removeAt(s.pinned, i)
	s.history = append([]types.Item{item}, s.history...)
	fx.history, fx.pinned = true, true
	fx.remove = append(fx.remove, s.orphanRefsLocked(s.pruneLocked())...)
}

// PromoteToTop is called when the user pastes an item. A pinned item is
// moved back to history when unpin-on-paste is set, or to the front of
// pinned when recency-on-copy is set. A history item moves to the front
// only when recency-on-copy is set.
func (s *Store) PromoteToTop(id string) error {
	var fx effects
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	list, i := s.locate(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}

	recency := s.settings.UpdateRecencyOnCopy()
	switch {
	case list == pinnedList && s.settings.UnpinOnPaste():
		s.unpinLocked(i, &fx)
	case list == pinnedList && recency && i > 0:
		s.pinned = moveToFront(s.pinned, i)
		fx.pinned = true
	case list == historyList && recency && i > 0:
		s.history = moveToFront(s.history, i)
		fx.history = true
	}
	s.persistLocked(fx)
	s.mu.Unlock()

	s.finish(fx)
	return nil
}

// Delete removes id from whichever list holds it and deletes its files.
func (s *Store) Delete(id string) error {
	var fx effects
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	list, i := s.locate(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	item := s.list(list)[i]
	s.setList(list, removeAt(s.list(list), i))
	if item.Hash == s.lastSeen {
		s.lastSeen = ""
	}
	s.texts.Remove(item.ID)
	fx.changed(list)
	fx.remove = s.orphanRefsLocked([]types.Item{item})
	s.persistLocked(fx)
	s.mu.Unlock()

	s.finish(fx)
	s.logger.Debug("Item deleted", zap.String("id", id))
	return nil
}

// ClearHistory deletes every history item and its files.
func (s *Store) ClearHistory() error {
	return s.clear(historyList)
}

// ClearPinned deletes every pinned item and its files.
func (s *Store) ClearPinned() error {
	return s.clear(pinnedList)
}

func (s *Store) clear(list listID) error {
	var fx effects
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	removed := s.list(list)
	s.setList(list, []types.Item{})
	for _, it := range removed {
		s.texts.Remove(it.ID)
		if it.Hash == s.lastSeen {
			s.lastSeen = ""
		}
	}
	fx.changed(list)
	fx.remove = s.orphanRefsLocked(removed)
	s.persistLocked(fx)
	s.mu.Unlock()

	s.finish(fx)
	return nil
}

// GetContent returns the full text of a text or code item.
func (s *Store) GetContent(id string) (string, bool) {
	item, ok := s.Get(id)
	if !ok {
		return "", false
	}
	var full bool
	var inline string
	switch p := item.Payload.(type) {
	case *types.TextPayload:
		full, inline = p.HasFullContent, p.Text
	case *types.CodePayload:
		full, inline = p.HasFullContent, p.Text
	default:
		return "", false
	}
	if !full {
		return inline, true
	}

	if text, ok := s.texts.Get(id); ok {
		return text, true
	}
	text, err := s.files.ReadText(id)
	if err != nil {
		s.logger.Warn("Failed to read side-car text", zap.String("id", id), zap.Error(err))
		return "", false
	}
	// Only cache while the item still exists, so a concurrent delete
	// can't leave a stale entry behind.
	s.mu.Lock()
	if _, i := s.locate(id); i >= 0 {
		s.texts.Add(id, text)
	}
	s.mu.Unlock()
	return text, true
}

// Update applies fn to the live record with id, if it still exists. When
// fn reports a change the owning list is persisted and its event emitted.
// It is how asynchronous enrichment lands its results.
func (s *Store) Update(id string, fn func(*types.Item) bool) (bool, error) {
	var fx effects
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return false, ErrNotLoaded
	}
	list, i := s.locate(id)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	item := s.list(list)[i].Clone()
	if !fn(&item) {
		s.mu.Unlock()
		return false, nil
	}
	item.ID = id
	s.list(list)[i] = item
	fx.changed(list)
	s.persistLocked(fx)
	s.mu.Unlock()

	s.finish(fx)
	return true, nil
}

// reapplyLimit prunes history after the limit setting changes.
func (s *Store) reapplyLimit() {
	var fx effects
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return
	}
	evicted := s.pruneLocked()
	if len(evicted) > 0 {
		fx.history = true
		fx.remove = s.orphanRefsLocked(evicted)
		s.persistLocked(fx)
	}
	s.mu.Unlock()
	s.finish(fx)
}

// pruneLocked cuts history to the configured limit and returns the
// evicted records, oldest last.
func (s *Store) pruneLocked() []types.Item {
	limit := s.settings.MaxHistoryItems()
	if limit < 0 || len(s.history) <= limit {
		return nil
	}
	evicted := append([]types.Item(nil), s.history[limit:]...)
	s.history = s.history[:limit:limit]
	for _, it := range evicted {
		s.texts.Remove(it.ID)
		if it.Hash == s.lastSeen {
			s.lastSeen = ""
		}
	}
	s.logger.Debug("History pruned", zap.Int("evicted", len(evicted)))
	return evicted
}

// orphanRefsLocked lists the files of removed items that no remaining
// record still references. Gradient swatches are shared by hash.
func (s *Store) orphanRefsLocked(removed []types.Item) []types.FileRef {
	if len(removed) == 0 {
		return nil
	}
	live := make(map[types.FileRef]bool)
	for _, list := range [][]types.Item{s.history, s.pinned} {
		for _, it := range list {
			for _, ref := range it.FileRefs() {
				live[ref] = true
			}
		}
	}
	var refs []types.FileRef
	for _, it := range removed {
		for _, ref := range it.FileRefs() {
			if !live[ref] {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

func (s *Store) persistLocked(fx effects) {
	if !s.loaded {
		return
	}
	if fx.history {
		if err := s.historySnap.Save(s.history); err != nil {
			s.logger.Error("Failed to persist history", zap.Error(err))
		}
	}
	if fx.pinned {
		if err := s.pinnedSnap.Save(s.pinned); err != nil {
			s.logger.Error("Failed to persist pinned items", zap.Error(err))
		}
	}
}

// finish runs the post-unlock part of a mutation.
func (s *Store) finish(fx effects) {
	for _, ref := range fx.remove {
		if err := s.files.Remove(ref); err != nil {
			s.logger.Warn("Failed to delete side-car file",
				zap.String("dir", ref.Dir.String()), zap.String("name", ref.Name), zap.Error(err))
		}
	}
	var events []Event
	if fx.history {
		events = append(events, HistoryChanged)
	}
	if fx.pinned {
		events = append(events, PinnedChanged)
	}
	s.events.Emit(events...)
}

func (s *Store) locate(id string) (listID, int) {
	if i := indexByID(s.history, id); i >= 0 {
		return historyList, i
	}
	if i := indexByID(s.pinned, id); i >= 0 {
		return pinnedList, i
	}
	return historyList, -1
}

func (s *Store) list(l listID) []types.Item {
	if l == historyList {
		return s.history
	}
	return s.pinned
}

func (s *Store) setList(l listID, items []types.Item) {
	if l == historyList {
		s.history = items
	} else {
		s.pinned = items
	}
}

func indexByID(items []types.Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func indexByHash(items []types.Item, hash string) int {
	if hash == "" {
		return -1
	}
	for i, it := range items {
		if it.Hash == hash {
			return i
		}
	}
	return -1
}

func moveToFront(items []types.Item, i int) []types.Item {
	it := items[i]
	copy(items[1:i+1], items[:i])
	items[0] = it
	return items
}

func removeAt(items []types.Item, i int) []types.Item {
	out := make([]types.Item, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func cloneAll(items []types.Item) []types.Item {
	out := make([]types.Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
