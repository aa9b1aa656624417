// Package content implements the codec registry and the content pipeline
// that turn application values into EncodedContent envelopes and back.
//
// # Codecs
//
// A [Codec] handles one content type, identified by a [TypeID] whose string
// form (authority/type:major.minor) is the registry key. [NewRegistry]
// registers the built-in codecs: text, reaction, read receipt, attachment,
// remote attachment, reply and group membership change. Applications add
// their own with [Registry.Register]; the last registration for a type wins.
// The group membership change type is reserved and cannot be replaced.
//
// # Pipeline
//
// [Pipeline.Prepare] encodes a value, replaces any encoder-supplied fallback
// with the codec's own, and compresses large payloads when configured:
//
//	p := content.NewPipeline(nil, content.WithCompression(content.CompressionGzip, 1024))
//	data, err := p.Encode("gm", content.ContentTypeText)
//
// [Pipeline.Resolve] reverses this. A known codec that rejects a payload
// returns a [*DecodeError]. An unknown content type is expected steady-state
// traffic: it resolves successfully with Known set to false and only the
// fallback text available.
//
// Envelopes cross the engine boundary as deterministic CBOR ([Marshal],
// [Unmarshal]). Decompressed payloads are bounded by
// limits.MaxDecompressedContent.
//
// # Attachments
//
// Remote attachments carry encrypted, serialized envelopes. [Pipeline.EncryptEncoded]
// and [Pipeline.DecryptRemote] handle in-memory payloads, and
// [Pipeline.EncryptLocalAttachment] and [Pipeline.DecryptLocalAttachment]
// work on files.
package content
