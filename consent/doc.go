// Package consent tracks allow and deny decisions per address or group id.
//
// A [Store] caches one client's consent list. Writes reach the engine first
// and the cache only after the engine accepts them. Unseen subjects are
// [StateUnknown]. Address subjects are compared in their EIP-55 checksummed
// form, so case variants of one address share an entry.
//
// A [Registry] hands out one isolated Store per client address.
package consent
