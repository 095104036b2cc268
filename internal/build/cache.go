package build

import "sync"

// Store is the host build's persistent cache store. Each render
// request gets its own named partition so concurrent renders cannot
// collide even when they compile the same entry.
type Store struct {
	mu         sync.Mutex
	partitions map[string]*Partition
}

// NewStore creates an empty cache store.
func NewStore() *Store {
	return &Store{partitions: make(map[string]*Partition)}
}

// Partition returns the sub-partition keyed by the render request ID,
// registering it on first use. Lifetime matches the store's.
func (s *Store) Partition(requestID string) *Partition {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[requestID]
	if !ok {
		part = &Partition{assets: make(map[string]*AssetSet)}
		s.partitions[requestID] = part
	}
	return part
}

// Partition caches compiled asset sets for one render request across
// repeated host builds.
type Partition struct {
	mu     sync.RWMutex
	assets map[string]*AssetSet
}

func (p *Partition) get(key string) (*AssetSet, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set, ok := p.assets[key]
	return set, ok
}

func (p *Partition) put(key string, set *AssetSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assets[key] = set
}
