package config

import "sync"

// Settings is the live view of SettingsConfig. Reads are cheap; Update
// notifies subscribers after the lock is released.
type Settings struct {
	mu     sync.RWMutex
	cur    SettingsConfig
	nextID int
	subs   map[int]func(SettingsConfig)
}

func NewSettings(initial SettingsConfig) *Settings {
	return &Settings{cur: initial, subs: make(map[int]func(SettingsConfig))}
}

func (s *Settings) MaxHistoryItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.MaxHistoryItems
}

func (s *Settings) UnpinOnPaste() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.UnpinOnPaste
}

func (s *Settings) UpdateRecencyOnCopy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.UpdateRecencyOnCopy
}

func (s *Settings) Snapshot() SettingsConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Update replaces the current values. Subscribers run only when something
// actually changed.
func (s *Settings) Update(next SettingsConfig) {
	s.mu.Lock()
	if next == s.cur {
		s.mu.Unlock()
		return
	}
	s.cur = next
	subs := make([]func(SettingsConfig), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// OnChange registers fn and returns a function that removes it.
func (s *Settings) OnChange(fn func(SettingsConfig)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
