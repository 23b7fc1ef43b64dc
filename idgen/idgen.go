// Package idgen provides pluggable ID generation.
//
// Components that mint identifiers (annotations, picks, snapshots,
// transport sessions) accept a Generator, making the ID strategy a
// startup-time decision rather than a compile-time one. Tests inject
// deterministic generators.
package idgen

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// NanoID returns a Generator that produces base-36 IDs of the given
// length. Short, URL-safe, fast; used where UUIDv7 is too verbose,
// such as record ids that end up in DOM attributes.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		b := make([]byte, length)
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range b {
			b[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(b)
	}
}

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable; used for snapshot and event identifiers.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the fallback strategy when a component is handed no
// Generator: UUIDv7.
var Default Generator = UUIDv7()

// Annotation mints annotation ids. The prefix keeps them recognizable
// inside marker attributes when inspecting a page.
var Annotation Generator = Prefixed("ann_", NanoID(10))

// Pick mints element-pick ids.
var Pick Generator = Prefixed("pick_", NanoID(10))

// New produces an ID using the Default generator.
func New() string {
	return Default()
}
