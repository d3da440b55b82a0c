package memory

import "sync"

// keyedTable stores one row per match id and returns rows in the order of
// the requested ids.
type keyedTable[T any] struct {
	mu   sync.RWMutex
	rows map[string]T
	key  func(T) string
}

func newKeyedTable[T any](key func(T) string) *keyedTable[T] {
	return &keyedTable[T]{rows: make(map[string]T), key: key}
}

func (t *keyedTable[T]) list(matchIDs []string) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0, len(matchIDs))
	seen := make(map[string]struct{}, len(matchIDs))
	for _, id := range matchIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if row, ok := t.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out
}

func (t *keyedTable[T]) upsert(items []T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, item := range items {
		if k := t.key(item); k != "" {
			t.rows[k] = item
		}
	}
}

func (t *keyedTable[T]) all() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, row)
	}
	return out
}
