// Package outbox persists prepared messages until they are published.
//
// A prepared message has been encrypted by the engine but not yet sent. The
// outbox records the engine's handle in SQLite so the send can be retried
// after a restart or while offline. Entries move from pending to sent, or to
// failed with the engine's error recorded; failed entries are retried by the
// next flush.
package outbox
