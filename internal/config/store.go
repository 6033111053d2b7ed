package config

import (
	"sort"
	"sync"
)

// Store holds the live settings for a host and tells subscribers when they
// change. Each host owns its own Store.
type Store struct {
	mu       sync.Mutex
	settings Settings
	subs     map[int]func(Settings)
	nextID   int
}

func NewStore(s Settings) *Store {
	return &Store{settings: s.Clone(), subs: make(map[int]func(Settings))}
}

func (st *Store) Get() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.settings.Clone()
}

// Update applies o to the current settings. Invalid results are rejected
// and leave the store unchanged.
func (st *Store) Update(o Overrides) error {
	st.mu.Lock()
	next, err := Resolve(st.settings, o)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	st.settings = next
	subs := st.subscribers()
	st.mu.Unlock()

	st.notify(subs, next)
	return nil
}

// Replace swaps in s wholesale, as after a config file reload.
func (st *Store) Replace(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	st.mu.Lock()
	st.settings = s.Clone()
	subs := st.subscribers()
	st.mu.Unlock()

	st.notify(subs, s)
	return nil
}

// Subscribe registers fn to be called after every change. Subscribers run
// in registration order, outside the store's lock.
func (st *Store) Subscribe(fn func(Settings)) (unsubscribe func()) {
	st.mu.Lock()
	defer st.mu.Unlock()
	id := st.nextID
	st.nextID++
	st.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			st.mu.Lock()
			delete(st.subs, id)
			st.mu.Unlock()
		})
	}
}

func (st *Store) subscribers() []func(Settings) {
	ids := make([]int, 0, len(st.subs))
	for id := range st.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Settings), len(ids))
	for i, id := range ids {
		fns[i] = st.subs[id]
	}
	return fns
}

func (st *Store) notify(subs []func(Settings), s Settings) {
	for _, fn := range subs {
		fn(s.Clone())
	}
}
