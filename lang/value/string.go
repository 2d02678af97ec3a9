package value

import (
	"strconv"
	"sync"
)

// StringID is a stable numeric id into a Pool. It is the Constant-level
// representation of a string: cheap to embed inline in an instruction, cheap
// to compare for equality.
type StringID uint32

// Pool interns source-literal strings and identifiers into a process-local
// table keyed by byte contents, so that string equality and table-key
// hashing become a numeric comparison rather than a byte-for-byte compare.
//
// A Pool is safe for concurrent use; the compiler and the runtime share one
// per Chunk.
type Pool struct {
	mu      sync.RWMutex
	byBytes map[string]StringID
	byID    []string
}

// NewPool returns an empty string pool.
func NewPool() *Pool {
	return &Pool{byBytes: make(map[string]StringID)}
}

// Intern returns the stable StringID for s, allocating one if this is the
// first time s is seen.
func (p *Pool) Intern(s string) StringID {
	p.mu.RLock()
	if id, ok := p.byBytes[s]; ok {
		p.mu.RUnlock()
		return id
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.byBytes[s]; ok {
		return id
	}
	id := StringID(len(p.byID))
	p.byID = append(p.byID, s)
	p.byBytes[s] = id
	return id
}

// Bytes returns the interned byte contents for id.
func (p *Pool) Bytes(id StringID) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byID[id]
}

// Str is the runtime string Value: an id into a Pool plus the pool it was
// interned into. Equality between two Str values is id comparison as long
// as they share a Pool, which is always true within one Chunk/Runtime.
type Str struct {
	ID   StringID
	Pool *Pool
}

// NewStr interns s into pool and returns the corresponding Str value.
func NewStr(pool *Pool, s string) Str {
	return Str{ID: pool.Intern(s), Pool: pool}
}

func (s Str) String() string { return strconv.Quote(s.Pool.Bytes(s.ID)) }
func (Str) Type() string     { return "string" }

// Bytes returns the raw byte contents of the string.
func (s Str) Bytes() string { return s.Pool.Bytes(s.ID) }

// Len returns the number of bytes in the string.
func (s Str) Len() int { return len(s.Bytes()) }
