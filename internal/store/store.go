package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Reserved keys live in their own namespace so they can never collide with a
// session identifier. Record keys must not start with the sentinel.
const (
	metaPrefix    = "!meta/"
	KeyLatest     = metaPrefix + "latest"
	callIndexPath = metaPrefix + "call-index/"
)

var (
	// ErrNotFound is returned when a key has no stored value.
	ErrNotFound = errors.New("store: key not found")
	// ErrKeyExists is returned by PutIfAbsent when the key is already taken.
	ErrKeyExists = errors.New("store: key already exists")
)

// Entry is a listing result: the key plus a content hash, no body.
type Entry struct {
	Key          string `json:"sessionId"`
	IntegrityTag string `json:"integrityTag"`
}

// Store is the durable key/value contract the transcript subsystem runs on.
// PutIfAbsent is the conditional-write primitive that session identifier
// allocation relies on; an implementation without real insert-if-absent
// semantics cannot close the allocation race.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	PutIfAbsent(ctx context.Context, key string, value []byte) error
	// List returns entries in the record namespace whose key starts with
	// prefix. Reserved keys are never returned. An empty prefix lists all
	// records.
	List(ctx context.Context, prefix string) ([]Entry, error)
}

// IsMeta reports whether key belongs to the reserved namespace.
func IsMeta(key string) bool {
	return strings.HasPrefix(key, metaPrefix)
}

// CallIndexKey returns the reserved key mapping an upstream call id to the
// session it was ingested under.
func CallIndexKey(callID string) string {
	return callIndexPath + callID
}

// IntegrityTag returns the content hash recorded alongside each value.
func IntegrityTag(value []byte) string {
	sum := sha256.Sum256(value)
	return hex.EncodeToString(sum[:])
}
