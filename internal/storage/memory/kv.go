package memory

import (
	"sort"
	"strings"
	"sync"
)

// Check guards a Commit on the version of Key. Version zero requires the key
// to be absent.
type Check struct {
	Key     string
	Version uint64
}

type Mutation struct {
	Key   string
	Value any
}

type entry struct {
	value   any
	version uint64
}

// KV is a versioned key-value map with atomic multi-key commits and per-key
// change notifications.
type KV struct {
	mu       sync.RWMutex
	data     map[string]entry
	seq      uint64
	watchers map[string]map[*watcher]struct{}
}

func NewKV() *KV {
	return &KV{
		data:     make(map[string]entry),
		watchers: make(map[string]map[*watcher]struct{}),
	}
}

func (kv *KV) Get(key string) (any, uint64, bool) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	e, ok := kv.data[key]
	return e.value, e.version, ok
}

// Keys returns the sorted keys starting with prefix.
func (kv *KV) Keys(prefix string) []string {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	keys := make([]string, 0)
	for k := range kv.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Commit applies mutations only if every check still holds. Watchers of the
// mutated keys are notified after the write is visible.
func (kv *KV) Commit(checks []Check, mutations []Mutation) bool {
	kv.mu.Lock()
	for _, c := range checks {
		if kv.data[c.Key].version != c.Version {
			kv.mu.Unlock()
			return false
		}
	}

	var notify []*watcher
	for _, m := range mutations {
		kv.seq++
		kv.data[m.Key] = entry{value: m.Value, version: kv.seq}
		for w := range kv.watchers[m.Key] {
			notify = append(notify, w)
		}
	}
	kv.mu.Unlock()

	for _, w := range notify {
		w.notify()
	}
	return true
}

// Watch registers a watcher on key. Only commits after this call are seen.
func (kv *KV) Watch(key string) *watcher {
	w := &watcher{
		kv:     kv,
		key:    key,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	kv.mu.Lock()
	set, ok := kv.watchers[key]
	if !ok {
		set = make(map[*watcher]struct{})
		kv.watchers[key] = set
	}
	set[w] = struct{}{}
	kv.mu.Unlock()

	return w
}

func (kv *KV) unwatch(w *watcher) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if set, ok := kv.watchers[w.key]; ok {
		delete(set, w)
		if len(set) == 0 {
			delete(kv.watchers, w.key)
		}
	}
}

func (kv *KV) watcherCount(key string) int {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return len(kv.watchers[key])
}
