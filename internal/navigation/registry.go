package navigation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrSealed is returned when registering after startup finished.
	ErrSealed = errors.New("navigation registry is sealed")
	// ErrDuplicateKey is returned when an entry key is registered twice.
	ErrDuplicateKey = errors.New("navigation key already registered")
)

// Entry is one item of the host navigation bar.
type Entry struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	Path         string `json:"path"`
	Icon         string `json:"icon,omitempty"`
	RequiredRole string `json:"-"`
	InsertBefore string `json:"-"`
}

// Item is an entry as served to a client, with its active flag resolved.
type Item struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Path   string `json:"path"`
	Icon   string `json:"icon,omitempty"`
	Active bool   `json:"active"`
}

// Registry collects navigation entries at startup and serves them read-only
// afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	sealed  bool
}

// NewRegistry returns a registry seeded with the host entries.
func NewRegistry(base ...Entry) *Registry {
	r := &Registry{}
	for _, entry := range base {
		_ = r.Register(entry)
	}
	return r
}

// Register adds an entry before its InsertBefore key, or at the end when that
// key is unknown.
func (r *Registry) Register(entry Entry) error {
	entry.Key = strings.TrimSpace(entry.Key)
	if entry.Key == "" || strings.TrimSpace(entry.Path) == "" {
		return fmt.Errorf("navigation entry requires key and path")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}
	for _, existing := range r.entries {
		if existing.Key == entry.Key {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, entry.Key)
		}
	}

	at := len(r.entries)
	if entry.InsertBefore != "" {
		for i, existing := range r.entries {
			if existing.Key == entry.InsertBefore {
				at = i
				break
			}
		}
	}

	r.entries = append(r.entries, Entry{})
	copy(r.entries[at+1:], r.entries[at:])
	r.entries[at] = entry
	return nil
}

// Seal stops further registrations.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Items returns the entries visible to role, marking the one whose path
// prefixes currentPath as active.
func (r *Registry) Items(role, currentPath string) []Item {
	role = strings.ToLower(strings.TrimSpace(role))

	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Item, 0, len(r.entries))
	activeSet := false
	for _, entry := range r.entries {
		if !visibleTo(entry.RequiredRole, role) {
			continue
		}
		item := Item{Key: entry.Key, Label: entry.Label, Path: entry.Path, Icon: entry.Icon}
		if !activeSet && currentPath != "" && entry.Path != "/" && strings.HasPrefix(currentPath, entry.Path) {
			item.Active = true
			activeSet = true
		}
		items = append(items, item)
	}
	return items
}

func visibleTo(required, role string) bool {
	switch strings.ToLower(required) {
	case "":
		return true
	case "teacher":
		return role == "teacher" || role == "admin"
	default:
		return strings.EqualFold(required, role)
	}
}
