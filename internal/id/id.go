// Package id generates render-request identifiers.
//
// Identifiers are prefixed ULIDs: lexicographically sortable, unique
// across concurrent renders, and readable in logs. The request ID also
// names the render's cache partition, so it must never collide between
// pipeline instances sharing a process.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RenderID identifies one render request.
type RenderID string

const renderPrefix = "rnd"

// Generator generates ULIDs from a guarded entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator(rand.Reader)
	})
	return defaultGenerator
}

// NewGenerator creates a generator with the given entropy source.
// Tests can pass a deterministic reader.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// NewRenderID generates a new render request ID.
func NewRenderID() RenderID {
	return RenderID(fmt.Sprintf("%s_%s", renderPrefix, Default().Generate().String()))
}

// String implements fmt.Stringer.
func (r RenderID) String() string { return string(r) }
