// Package session provides conversation history persistence backed by a
// single JSON snapshot file.
//
// A session is the durable, append-only ordered history of messages
// exchanged between user and model under one chat identifier. [FileStore]
// owns all sessions; callers only ever observe copies.
//
// # Durability
//
// Every mutation flushes the whole store before returning. Writes are
// staged to a temporary file in the snapshot directory and promoted with
// an atomic rename, so a crash mid-write never corrupts the previously
// durable snapshot. A failed flush rolls the in-memory mutation back so
// visible state always matches the last durable snapshot.
//
// # Concurrency
//
// FileStore is safe for concurrent use. Appends on the same session
// serialize through a per-session mutex; sessions do not contend with
// each other. The snapshot file itself is a single-writer resource guarded
// by its own mutex, and by a [github.com/gofrs/flock] file lock against
// other processes.
package session
