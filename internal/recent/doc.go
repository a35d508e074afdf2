// Package recent remembers documents the user opened from disk.
//
// Records live in a small SQLite database (modernc.org/sqlite, no cgo) under
// the data directory. Reopening a record first checks read access; a file
// that was moved, deleted or had its permissions revoked yields no bytes and
// Reopen drops the stale record instead of failing the caller.
package recent
