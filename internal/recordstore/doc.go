// Package recordstore owns the durable journal collection.
//
// The whole collection is one JSON blob under one key in a kv.Backend. Every
// operation is a full-collection transform, never a delta:
//
//   - LoadAll: read and decode the blob; absent means empty
//   - Upsert: replace the entry with the same id in place, or append
//   - Delete: drop the entry with the id; absent id is a no-op
//   - Update: change one entry in place from its current stored value
//
// # Serialization
//
// Upsert, Delete and Update are read-modify-write cycles. They are pushed onto a
// single FIFO queue and executed one at a time by the store's writer
// goroutine, so no cycle can start from a stale collection (lost update).
// Loads bypass the queue and rely on the backend's atomic Set.
//
// # Failures
//
// Every failure is an *Error with a Code. Backend failures are
// STORAGE_UNAVAILABLE and are never retried. A blob that does not decode is
// DATA_CORRUPTION under the default PolicyFail; PolicyReset reads it as empty
// instead and lets the next mutation overwrite it.
package recordstore
