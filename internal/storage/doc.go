// Package storage provides the flat key-value persistence layer backing the
// notification history.
//
// It currently supports:
//   - "file": dependency-free backend (snapshot + jsonl journal)
//   - "sqlite": SQLite database file (optional build tag)
//   - "memory": ephemeral, for tests and throwaway runs
//
// Writes are atomic per key. There are no cross-key transactions; callers
// that update multiple slots accept the resulting inconsistency window.
package storage
