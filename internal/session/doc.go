// Package session owns the chat session collection: the ordered list of
// conversation threads, the active-thread pointer, and every mutation on them.
//
// A session is one conversation thread with its own title and ordered message
// history. The [Store] is the single owner of the collection; the presentation
// layer holds no authoritative state and observes changes through
// [Store.OnSessionsChanged] and [Store.OnActiveChanged].
//
// Key operations:
//
//   - Lifecycle: [Store.Load], [Store.CreateSession], [Store.SelectSession], [Store.DeleteSession]
//   - Messages: [Store.AppendMessage], [Store.RenameIfFirstUserTurn]
//   - Read access: [Store.Sessions], [Store.Active], [Store.Get]
//
// # Persistence
//
// Every mutation serializes the full collection and hands it to the injected
// [Blob] (write-through). Save failures are logged and swallowed; the
// in-memory collection stays the source of truth. Nothing is ever written
// before [Store.Load] has completed, so a slow or failed startup load cannot
// clobber previously saved data.
//
// # Concurrency
//
// Store is safe for concurrent use. All state is guarded by a single mutex;
// change notifications fire synchronously after the mutation commits, outside
// the lock, so subscribers may call back into the Store.
package session
