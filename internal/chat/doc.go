// Package chat drives the request/response lifecycle of a single user turn.
//
// The [Orchestrator] builds the user message, appends it to the target
// session, invokes the [QueryGateway], and appends either the AI reply or a
// system-role error entry. One turn may be in flight at a time across the
// whole application: a single assistant mind processes one request at a time.
// That flag is global by design, not an incidental limitation.
//
// Gateway failures are not silently dropped: they become permanent
// conversation entries ("Error: ..."), so the thread is a complete audit log
// of what the user saw, failures included. Cancellation of an in-flight turn
// is not supported; a turn runs to completion once submitted.
package chat
