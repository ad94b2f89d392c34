// Package uuid generates queue item identifiers.
package uuid

import (
	"github.com/google/uuid"
)

// Generator produces item identifiers. Tests substitute deterministic ones.
type Generator func() string

// New generates a new random UUID v4.
func New() string {
	return uuid.New().String()
}

// Sequence returns a Generator yielding the given ids in order, then falling
// back to random UUIDs once they run out.
func Sequence(ids ...string) Generator {
	next := 0
	return func() string {
		if next < len(ids) {
			id := ids[next]
			next++
			return id
		}
		return New()
	}
}
