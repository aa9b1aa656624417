// Package messaging lists, decodes and sends messages on behalf of one
// client address.
//
// # Queries
//
// Listing bounds are [TimeBound] values built with [AtMillis] or [AtTime].
// Both normalize to epoch milliseconds, so the two forms of the same instant
// produce identical engine parameters. The default direction is newest
// first. Malformed arguments (an empty scope, a negative limit, or after
// later than before) return an [*InvalidQueryError] before the engine is
// called.
//
// # Decoding
//
// [Decoder.Decode] is strict: a corrupt record or a payload its known codec
// rejects is an error. Listings use [Decoder.DecodeOrDegrade] instead, so
// one bad record becomes a degraded [DecodedMessage] without dropping the
// rest of the page:
//
//	messages, err := store.ListMessages(ctx, topic, messaging.ListOptions{Limit: 50})
//	for _, m := range messages {
//	    if m.Degraded() {
//	        render(m.Fallback)
//	        continue
//	    }
//	    render(m.Content)
//	}
//
// [Store.ListBatchMessages] issues one engine request per query and returns
// the results in query order without merging them by time.
//
// # Sending
//
// [Store.Send] and [Store.SendToGroup] publish immediately. [Store.Prepare]
// and [Store.SendPrepared] split encoding from publishing so a message can be
// queued while offline.
package messaging
