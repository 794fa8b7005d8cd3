package persist

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// MemoryGateway is an in-memory Gateway keyed by Location.Key. It is meant
// for tests and examples and counts writes per key.
type MemoryGateway struct {
	mu       sync.RWMutex
	blobs    map[string][]byte
	writes   map[string]int
	readErr  error
	writeErr error
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		blobs:  map[string][]byte{},
		writes: map[string]int{},
	}
}

// Put seeds loc with blob without counting a write.
func (g *MemoryGateway) Put(loc Location, blob []byte) {
	g.mu.Lock()
	g.blobs[loc.Key()] = bytes.Clone(blob)
	g.mu.Unlock()
}

// Blob returns the stored bytes for loc.
func (g *MemoryGateway) Blob(loc Location) ([]byte, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	blob, ok := g.blobs[loc.Key()]
	return bytes.Clone(blob), ok
}

// Writes returns how many times loc was written.
func (g *MemoryGateway) Writes(loc Location) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.writes[loc.Key()]
}

// FailReads makes every Read return err until cleared with nil.
func (g *MemoryGateway) FailReads(err error) {
	g.mu.Lock()
	g.readErr = err
	g.mu.Unlock()
}

// FailWrites makes every Write return err until cleared with nil.
func (g *MemoryGateway) FailWrites(err error) {
	g.mu.Lock()
	g.writeErr = err
	g.mu.Unlock()
}

func (g *MemoryGateway) Exists(_ context.Context, loc Location) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.blobs[loc.Key()]
	return ok, nil
}

func (g *MemoryGateway) Read(_ context.Context, loc Location) ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.readErr != nil {
		return nil, fmt.Errorf("persist: read %s: %w", loc, g.readErr)
	}
	blob, ok := g.blobs[loc.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return bytes.Clone(blob), nil
}

func (g *MemoryGateway) Write(_ context.Context, loc Location, blob []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return fmt.Errorf("persist: write %s: %w", loc, g.writeErr)
	}
	g.blobs[loc.Key()] = bytes.Clone(blob)
	g.writes[loc.Key()]++
	return nil
}
