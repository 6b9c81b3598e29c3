// Package querycache is the process-wide cache of read results used by the
// entity access hooks.
//
// Entries are addressed by Key and move through the states
// Empty -> Loading -> Ready | Error, Ready -> Stale -> Loading. Concurrent
// reads of one key share a single backend call. Every started fetch is
// tagged with a generation; a result whose generation has been superseded by
// a newer fetch is returned to its waiters but never stored. A result that
// lands after an invalidation is stored as Stale.
//
// A Cache is constructed explicitly with New and torn down with Close.
package querycache

import "strings"

// Key addresses a cached read result. Scope carries the tenant so that keys
// of different tenants never alias. ID is empty for collection reads.
type Key struct {
	Entity string
	Scope  string
	ID     string
}

// ListKey returns the key of the collection of entity in scope.
func ListKey(entity, scope string) Key {
	return Key{Entity: entity, Scope: scope}
}

// ItemKey returns the key of one record.
func ItemKey(entity, scope, id string) Key {
	return Key{Entity: entity, Scope: scope, ID: id}
}

// IsList reports whether the key addresses a collection.
func (k Key) IsList() bool { return k.ID == "" }

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Entity)
	b.WriteByte('/')
	b.WriteString(k.Scope)
	if k.ID != "" {
		b.WriteByte('/')
		b.WriteString(k.ID)
	}
	return b.String()
}
