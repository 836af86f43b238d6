package archive

import (
	"context"
	"sort"
	"sync"
)

// MemoryProvider keeps archived bodies in memory. It backs tests and dry
// runs where the raw HTML should be inspectable but never hit disk.
type MemoryProvider struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryProvider returns an empty in-memory archive.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{objects: make(map[string][]byte)}
}

// Save stores a copy of data under objectName, replacing any previous body
// saved under the same name.
func (p *MemoryProvider) Save(_ context.Context, objectName string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects[objectName] = append([]byte(nil), data...)
	return nil
}

// Get returns the stored body for objectName.
func (p *MemoryProvider) Get(objectName string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.objects[objectName]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// ObjectNames returns the sorted names of every stored object.
func (p *MemoryProvider) ObjectNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.objects))
	for name := range p.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
