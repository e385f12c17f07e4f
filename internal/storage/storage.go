// Package storage provides the persistence adapters behind the session
// store: opaque single-payload blob stores plus a local spool for attached
// image bytes.
//
// Two blob drivers exist: [FileBlob] keeps the payload in one file with an
// atomic write (temp file + rename) guarded by a cross-process advisory lock,
// and [SQLiteBlob] keeps it in a key-value table. Both satisfy the consumer
// interface defined in internal/session.
package storage

// BlobKey is the key under which the serialized session collection lives in
// keyed stores. It matches the payload name used by the original client.
const BlobKey = "chatSessions"
