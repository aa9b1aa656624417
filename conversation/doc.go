// Package conversation models pairwise conversations and groups behind one
// tagged-union [Container].
//
// The engine reports both kinds as flat JSON records. [ParseRecord] reads
// the record's version field and nothing else to pick the variant: "GROUP"
// yields a group, every other value a pairwise conversation. Group-only
// accessors such as [Container.Members] and conversation-only accessors such
// as [Container.PeerAddress] return a [*WrongVariantError] on the other
// variant rather than a zero value.
//
// [Lister] performs the conversation and group operations of one client
// address against the engine, keeping the order in which the engine lists
// records.
package conversation
