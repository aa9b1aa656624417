package content

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip prepares value, serializes the envelope, parses it back and
// resolves it, as sender and receiver would.
func roundTrip(t *testing.T, p *Pipeline, value any, id TypeID) *Resolved {
	t.Helper()
	data, err := p.Encode(value, id)
	require.NoError(t, err)

	resolved, err := p.ResolveBytes(data)
	require.NoError(t, err)
	require.True(t, resolved.Known)
	return resolved
}

func TestBuiltinCodecRoundTrip(t *testing.T) {
	p := NewPipeline(nil)

	tests := []struct {
		name  string
		id    TypeID
		value any
	}{
		{name: "text", id: ContentTypeText, value: testText},
		{name: "text unicode", id: ContentTypeText, value: "héllo 🌍"},
		{name: "reaction added", id: ContentTypeReaction, value: Reaction{Reference: testReference, Action: ReactionAdded, Content: "👍", Schema: ReactionUnicode}},
		{name: "reaction removed", id: ContentTypeReaction, value: Reaction{Reference: testReference, Action: ReactionRemoved, Content: ":smile:", Schema: ReactionShortcode}},
		{name: "read receipt", id: ContentTypeReadReceipt, value: ReadReceipt{}},
		{name: "attachment", id: ContentTypeAttachment, value: Attachment{Filename: testFilename, MimeType: testMimeType, Data: []byte{0x89, 'P', 'N', 'G'}}},
		{name: "remote attachment", id: ContentTypeRemoteAttachment, value: RemoteAttachment{
			URL:           testRemoteURL,
			ContentDigest: "deadbeef",
			Secret:        bytes.Repeat([]byte{1}, 32),
			Salt:          bytes.Repeat([]byte{2}, 32),
			Nonce:         bytes.Repeat([]byte{3}, 12),
			Scheme:        RemoteAttachmentScheme,
			ContentLength: 1024,
			Filename:      testFilename,
		}},
		{name: "reply to text", id: ContentTypeReply, value: Reply{Reference: testReference, ContentType: ContentTypeText, Content: testText}},
		{name: "reply with reaction", id: ContentTypeReply, value: Reply{Reference: testReference, ContentType: ContentTypeReaction, Content: Reaction{Reference: testReference, Action: ReactionAdded, Content: "🔥", Schema: ReactionUnicode}}},
		{name: "membership change", id: ContentTypeGroupMembershipChange, value: GroupMembershipChanges{
			MembersAdded: []MembershipChange{{InboxID: "inbox-2", AccountAddresses: []string{"0xabc"}, InitiatedByInboxID: "inbox-1"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := roundTrip(t, p, tt.value, tt.id)
			assert.Equal(t, tt.id, resolved.Type)
			assert.Equal(t, tt.value, resolved.Content)
		})
	}
}

func TestPrepareFallbackInvariant(t *testing.T) {
	p := NewPipeline(nil)
	values := map[TypeID]any{
		ContentTypeText:             testText,
		ContentTypeReaction:         Reaction{Reference: testReference, Action: ReactionAdded, Content: "👍", Schema: ReactionUnicode},
		ContentTypeReadReceipt:      ReadReceipt{},
		ContentTypeAttachment:       Attachment{Filename: testFilename, MimeType: testMimeType, Data: []byte("x")},
		ContentTypeReply:            Reply{Reference: testReference, ContentType: ContentTypeText, Content: testText},
		ContentTypeRemoteAttachment: RemoteAttachment{URL: testRemoteURL, ContentDigest: "ab", Secret: []byte{1}, Salt: []byte{2}, Nonce: []byte{3}, Scheme: RemoteAttachmentScheme, Filename: testFilename},
	}

	for id, value := range values {
		t.Run(id.String(), func(t *testing.T) {
			codec, err := p.Registry().Resolve(id)
			require.NoError(t, err)

			encoded, err := p.Prepare(value, codec)
			require.NoError(t, err)
			assert.NotEmpty(t, encoded.Content)

			want, ok := codec.Fallback(value)
			got, has := encoded.FallbackText()
			if ok && want != "" {
				assert.True(t, has, "fallback must be set")
				assert.Equal(t, want, got)
			} else {
				assert.False(t, has)
			}
		})
	}
}

func TestPrepareOverwritesEncoderFallback(t *testing.T) {
	p := NewPipeline(nil)

	encoded, err := p.Prepare(coffee{Size: "large"}, &mockCoffeeCodec{label: "cafe"})
	require.NoError(t, err)
	fallback, ok := encoded.FallbackText()
	require.True(t, ok)
	assert.Equal(t, "[cafe] a large coffee", fallback)

	encoded, err = p.Prepare(coffee{Size: "small"}, &mockCoffeeCodec{noFallback: true})
	require.NoError(t, err)
	assert.Nil(t, encoded.Fallback, "encoder-set fallback must not survive")
}

func TestPrepareByTypeUnknown(t *testing.T) {
	p := NewPipeline(nil)

	_, err := p.PrepareByType(coffee{Size: "large"}, testCustomType)
	var notFound *CodecNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestPrepareRejectsEmpty(t *testing.T) {
	p := NewPipeline(nil)

	_, err := p.PrepareByType("", ContentTypeText)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = p.PrepareByType(42, ContentTypeText)
	assert.ErrorIs(t, err, ErrUnexpectedValue)

	_, err = p.Prepare(testText, nil)
	assert.Error(t, err)
}

func TestResolveUnknownTypeNeverFails(t *testing.T) {
	sender := NewRegistry()
	require.NoError(t, sender.Register(&mockCoffeeCodec{label: "cafe"}))
	data, err := NewPipeline(sender).Encode(coffee{Size: "large"}, testCustomType)
	require.NoError(t, err)

	receiver := NewPipeline(nil)
	resolved, err := receiver.ResolveBytes(data)
	require.NoError(t, err)
	assert.False(t, resolved.Known)
	assert.Nil(t, resolved.Content)
	assert.True(t, resolved.HasFallback())
	assert.Equal(t, "[cafe] a large coffee", resolved.Fallback)

	t.Run("without fallback", func(t *testing.T) {
		resolved, err := receiver.Resolve(&EncodedContent{Type: testCustomType, Content: []byte("x")})
		require.NoError(t, err)
		assert.False(t, resolved.Known)
		assert.False(t, resolved.HasFallback())
	})
}

func TestResolveKnownTypeCorruptPayload(t *testing.T) {
	p := NewPipeline(nil)

	tests := []struct {
		name    string
		encoded *EncodedContent
	}{
		{name: "invalid utf8 text", encoded: &EncodedContent{Type: ContentTypeText, Content: []byte{0xff, 0xfe}}},
		{name: "unknown text encoding", encoded: &EncodedContent{Type: ContentTypeText, Parameters: map[string]string{"encoding": "latin1"}, Content: []byte("x")}},
		{name: "malformed reaction", encoded: &EncodedContent{Type: ContentTypeReaction, Content: []byte("{not json")}},
		{name: "attachment without mime", encoded: &EncodedContent{Type: ContentTypeAttachment, Content: []byte("x")}},
		{name: "reply without reference", encoded: &EncodedContent{Type: ContentTypeReply, Content: []byte("x")}},
		{name: "corrupt compression", encoded: &EncodedContent{Type: ContentTypeText, Content: []byte("not gzip"), Compression: compressionPtr(CompressionGzip)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallback := "should not be used"
			tt.encoded.Fallback = &fallback

			resolved, err := p.Resolve(tt.encoded)
			assert.Nil(t, resolved)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.encoded.Type.String(), decodeErr.Type)
			assert.NotEmpty(t, decodeErr.Codec)
		})
	}
}

func TestResolveBytesGarbage(t *testing.T) {
	p := NewPipeline(nil)

	_, err := p.ResolveBytes([]byte{0xff, 0x00, 0x13})
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "envelope", decodeErr.Codec)

	_, err = p.ResolveBytes(nil)
	assert.Error(t, err)
}

func TestPipelineCompression(t *testing.T) {
	large := strings.Repeat("compress me ", testLargePayload/12)

	for _, algorithm := range []Compression{CompressionDeflate, CompressionGzip} {
		t.Run(algorithm.String(), func(t *testing.T) {
			p := NewPipeline(nil, WithCompression(algorithm, 100))

			encoded, err := p.PrepareByType(large, ContentTypeText)
			require.NoError(t, err)
			require.NotNil(t, encoded.Compression)
			assert.Equal(t, algorithm, *encoded.Compression)
			assert.Less(t, len(encoded.Content), len(large))

			resolved, err := p.Resolve(encoded)
			require.NoError(t, err)
			assert.Equal(t, large, resolved.Content)

			small, err := p.PrepareByType("hi", ContentTypeText)
			require.NoError(t, err)
			assert.Nil(t, small.Compression, "payload below threshold stays uncompressed")
		})
	}
}

func TestDecompressionLimit(t *testing.T) {
	data, err := compress(CompressionDeflate, bytes.Repeat([]byte{'a'}, 2048))
	require.NoError(t, err)

	_, err = decompress(CompressionDeflate, data, 1024)
	assert.Error(t, err)

	out, err := decompress(CompressionDeflate, data, 2048)
	require.NoError(t, err)
	assert.Len(t, out, 2048)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = ParseCompression("none")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = ParseCompression("GZIP")
	require.NoError(t, err)
	assert.Equal(t, CompressionGzip, *c)

	_, err = ParseCompression("brotli")
	assert.Error(t, err)
}

func TestMarshalDeterministic(t *testing.T) {
	encoded := &EncodedContent{
		Type:       ContentTypeText,
		Parameters: map[string]string{"encoding": "UTF-8", "b": "2", "a": "1", "z": "26"},
		Content:    []byte(testText),
	}

	first, err := Marshal(encoded)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Marshal(encoded)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	parsed, err := Unmarshal(first)
	require.NoError(t, err)
	assert.Equal(t, encoded, parsed)
}

func TestUnmarshalRejectsDeepNesting(t *testing.T) {
	// {1: [[[...[0]...]]]} nested well past an envelope's depth
	data := []byte{0xa1, 0x01}
	for i := 0; i < 20; i++ {
		data = append(data, 0x81)
	}
	data = append(data, 0x00)

	_, err := Unmarshal(data)
	assert.Error(t, err)

	_, err = NewPipeline(nil).ResolveBytes(data)
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestReactionLegacyDecode(t *testing.T) {
	p := NewPipeline(nil)

	resolved, err := p.Resolve(&EncodedContent{
		Type: ContentTypeReaction,
		Parameters: map[string]string{
			"reference": testReference,
			"action":    "added",
			"schema":    "unicode",
		},
		Content: []byte("❤️"),
	})
	require.NoError(t, err)
	assert.Equal(t, Reaction{Reference: testReference, Action: ReactionAdded, Content: "❤️", Schema: ReactionUnicode}, resolved.Content)
}

func TestReplyWithUnknownInnerType(t *testing.T) {
	sender := NewRegistry()
	require.NoError(t, sender.Register(&mockCoffeeCodec{label: "cafe"}))
	data, err := NewPipeline(sender).Encode(Reply{Reference: testReference, ContentType: testCustomType, Content: coffee{Size: "large"}}, ContentTypeReply)
	require.NoError(t, err)

	resolved, err := NewPipeline(nil).ResolveBytes(data)
	require.NoError(t, err)
	reply, ok := resolved.Content.(Reply)
	require.True(t, ok)
	assert.Equal(t, testCustomType, reply.ContentType)
	assert.Nil(t, reply.Content)
	assert.Equal(t, "Replied to an earlier message", resolved.Fallback)
}

func TestReplyRejectsNesting(t *testing.T) {
	p := NewPipeline(nil)
	_, err := p.PrepareByType(Reply{Reference: testReference, ContentType: ContentTypeReply, Content: Reply{}}, ContentTypeReply)
	assert.Error(t, err)
}

func TestFallbackText(t *testing.T) {
	tests := []struct {
		name  string
		id    TypeID
		value any
		want  string
	}{
		{name: "reaction added", id: ContentTypeReaction, value: Reaction{Reference: "r", Action: ReactionAdded, Content: "👍", Schema: ReactionUnicode}, want: "Reacted “👍” to an earlier message"},
		{name: "reaction removed", id: ContentTypeReaction, value: Reaction{Reference: "r", Action: ReactionRemoved, Content: "👍", Schema: ReactionUnicode}, want: "Removed “👍” from an earlier message"},
		{name: "reply text", id: ContentTypeReply, value: Reply{Reference: "r", ContentType: ContentTypeText, Content: "sure"}, want: "Replied with “sure” to an earlier message"},
		{name: "attachment", id: ContentTypeAttachment, value: Attachment{Filename: testFilename, MimeType: testMimeType, Data: []byte{1}}, want: "Can’t display \"cat.png\". This app doesn’t support attachments."},
	}

	p := NewPipeline(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := p.PrepareByType(tt.value, tt.id)
			require.NoError(t, err)
			got, ok := encoded.FallbackText()
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func compressionPtr(c Compression) *Compression {
	return &c
}
