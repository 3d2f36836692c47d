// Package storage persists study signals.
package storage

import (
	"io"
	"strings"

	"github.com/gambcl/chartstudies/pkg/core"
)

// Storage is a signal storage that owns an open database
type Storage interface {
	core.SignalStorage
	io.Closer
}

var (
	_ Storage = (*BuntStorage)(nil)
	_ Storage = (*SQLStorage)(nil)
)

// Open picks the backend from the file name: ".db", ".sqlite" and ".sqlite3" files
// use SQLite, anything else (including ":memory:") uses BuntDB.
func Open(path string) (Storage, error) {
	lower := strings.ToLower(path)
	for _, ext := range []string{".db", ".sqlite", ".sqlite3"} {
		if strings.HasSuffix(lower, ext) {
			return FromSQLite(path)
		}
	}
	return NewBuntStorage(path)
}
