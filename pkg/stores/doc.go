// Package stores provides the invocation journal: an append-only SQLite
// record of acknowledged lifecycle requests and the telemetry events raised
// while handling them. The journal is write-only from the handler's point of
// view; nothing recorded here is read back to answer a later request.
package stores
