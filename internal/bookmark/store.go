package bookmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/99designs/keyring"
)

// Kind says which resolution call a stored token belongs to.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Entry is a named bookmark token together with the provider family that issued it.
type Entry struct {
	Name     string    `json:"name"`
	Provider string    `json:"provider"`
	Kind     Kind      `json:"kind"`
	Token    string    `json:"token"`
	SavedAt  time.Time `json:"savedAt"`
}

// Store persists bookmark entries.
// Implementations should be safe to call from multiple goroutines.
type Store interface {
	Put(e Entry) error
	Get(name string) (Entry, bool, error)
	Delete(name string) error
	List() ([]Entry, error)
}

type keyringStore struct {
	ring    keyring.Keyring
	service string
}

// NewKeyringStore opens the OS keyring via 99designs/keyring.
// If it fails, returns an error so callers can fallback to memory.
func NewKeyringStore(service string) (Store, error) {
	r, err := keyring.Open(keyring.Config{ServiceName: service})
	if err != nil {
		return nil, err
	}
	return NewKeyringStoreWith(r, service), nil
}

// NewKeyringStoreWith wraps an already opened keyring.
func NewKeyringStoreWith(r keyring.Keyring, service string) Store {
	return &keyringStore{ring: r, service: service}
}

func (s *keyringStore) Put(e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("bookmark: entry needs a name")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("bookmark: encode entry: %w", err)
	}
	return s.ring.Set(keyring.Item{
		Key:         e.Name,
		Data:        data,
		Label:       s.service,
		Description: fmt.Sprintf("%s %s bookmark", e.Provider, e.Kind),
	})
}

func (s *keyringStore) Get(name string) (Entry, bool, error) {
	item, err := s.ring.Get(name)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(item.Data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("bookmark: decode entry %q: %w", name, err)
	}
	return e, true, nil
}

func (s *keyringStore) Delete(name string) error {
	err := s.ring.Remove(name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *keyringStore) List() ([]Entry, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		e, found, err := s.Get(k)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

// MemoryStore keeps entries for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Put(e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("bookmark: entry needs a name")
	}
	m.mu.Lock()
	m.entries[e.Name] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(name string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	return e, ok, nil
}

func (m *MemoryStore) Delete(name string) error {
	m.mu.Lock()
	delete(m.entries, name)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List() ([]Entry, error) {
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()
	sortEntries(out)
	return out, nil
}

// sortEntries orders newest first, then by name.
func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool {
		if !es[i].SavedAt.Equal(es[j].SavedAt) {
			return es[i].SavedAt.After(es[j].SavedAt)
		}
		return es[i].Name < es[j].Name
	})
}
