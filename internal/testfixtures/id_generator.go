package testfixtures

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// fixtureNamespace seeds the name based UUIDs produced by UUIDFunc.
var fixtureNamespace = uuid.MustParse("6f1c2a8e-0d4b-4c53-9a57-3f2f7f3f9b11")

// IDGenerator hands out predictable identifiers such as "task-1", "task-2".
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	issued []string
}

// NewIDGenerator returns a generator for prefix, defaulting to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier and records it.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("%s-%d", g.prefix, len(g.issued)+1)
	g.issued = append(g.issued, id)
	return id
}

// NextFunc returns Next for injection. A nil generator yields empty ids.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued lists the identifiers handed out so far, oldest first.
func (g *IDGenerator) Issued() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.issued...)
}

// Reset forgets issued identifiers so the sequence restarts at 1.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.issued = nil
	g.mu.Unlock()
}

// UUIDFunc returns a generator of UUIDs derived from the generator's ids.
// Equal prefixes give equal sequences, matching the shape production ids have.
func (g *IDGenerator) UUIDFunc() func() string {
	return func() string {
		return uuid.NewSHA1(fixtureNamespace, []byte(g.Next())).String()
	}
}
