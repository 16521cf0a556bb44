// Package conn implements the per-connection state machine.
//
// A connection moves Idle → Connecting → Open → Closed, with Error
// reachable from Connecting or Open; Closed and Error both re-enter
// Connecting after the retry delay unless the connection was intentionally
// closed. The only terminal state is ShutDown, entered via Close. Lifecycle
// events are published on a channel consumed by the stats aggregator.
package conn
