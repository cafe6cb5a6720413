// Package strhash provides stable string hashes used as identifiers for
// types, events and event parameters. A hash depends only on the string
// contents, so the same name yields the same identifier in every process.
package strhash

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Hash is a 64-bit identifier derived from a string.
// The zero Hash denotes an empty or unassigned identifier.
type Hash uint64

// Zero is the hash of the empty string.
const Zero Hash = 0

var names sync.Map // Hash -> string

// New hashes s without remembering the source string.
func New(s string) Hash {
	if s == "" {
		return Zero
	}
	return Hash(xxhash.Sum64String(s))
}

// Intern hashes s and remembers the source string so that Name and String
// can report it later. Interning the same string twice is harmless.
func Intern(s string) Hash {
	h := New(s)
	if h != Zero {
		names.LoadOrStore(h, s)
	}
	return h
}

// Name returns the interned string for h, if any.
func Name(h Hash) (string, bool) {
	v, ok := names.Load(h)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// IsZero reports whether h is the empty identifier.
func (h Hash) IsZero() bool { return h == Zero }

// String returns the interned name when known and the hex value otherwise.
func (h Hash) String() string {
	if name, ok := Name(h); ok {
		return name
	}
	return fmt.Sprintf("#%016x", uint64(h))
}
