package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAttachmentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	plaintext := []byte("not really a png")
	source := filepath.Join(dir, testFilename)
	require.NoError(t, os.WriteFile(source, plaintext, 0o600))

	p := NewPipeline(nil)
	encrypted, err := p.EncryptLocalAttachment(DecryptedLocalAttachment{
		FileURI:  "file://" + source,
		MimeType: testMimeType,
	}, dir)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encrypted.EncryptedLocalFileURI, "file://"))
	assert.Equal(t, testFilename, encrypted.Metadata.Filename)
	assert.NotEmpty(t, encrypted.Metadata.ContentDigest)

	ciphertext, err := os.ReadFile(localPath(encrypted.EncryptedLocalFileURI))
	require.NoError(t, err)
	assert.Equal(t, encrypted.Metadata.ContentLength, len(ciphertext))
	assert.NotContains(t, string(ciphertext), string(plaintext))

	decrypted, err := p.DecryptLocalAttachment(*encrypted, dir)
	require.NoError(t, err)
	assert.Equal(t, testMimeType, decrypted.MimeType)
	assert.Equal(t, testFilename, decrypted.Filename)

	restored, err := os.ReadFile(localPath(decrypted.FileURI))
	require.NoError(t, err)
	assert.Equal(t, plaintext, restored)
}

func TestLocalAttachmentTampered(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(source, []byte("secret note"), 0o600))

	p := NewPipeline(nil)
	encrypted, err := p.EncryptLocalAttachment(DecryptedLocalAttachment{FileURI: source, MimeType: "text/plain"}, dir)
	require.NoError(t, err)

	path := localPath(encrypted.EncryptedLocalFileURI)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = p.DecryptLocalAttachment(*encrypted, dir)
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestRemoteAttachmentMetadata(t *testing.T) {
	meta := RemoteAttachmentMetadata{
		Filename:      testFilename,
		Secret:        []byte{1},
		Salt:          []byte{2},
		Nonce:         []byte{3},
		ContentDigest: "abcd",
		ContentLength: 10,
	}

	remote := meta.RemoteAttachment(testRemoteURL)
	assert.Equal(t, testRemoteURL, remote.URL)
	assert.Equal(t, RemoteAttachmentScheme, remote.Scheme)
	assert.NoError(t, remote.validate())
}

func TestEncryptEncodedDecryptRemote(t *testing.T) {
	p := NewPipeline(nil)

	encrypted, err := p.EncryptEncoded(Attachment{Filename: testFilename, MimeType: testMimeType, Data: []byte("pixels")}, AttachmentCodec{})
	require.NoError(t, err)

	remote := RemoteAttachment{
		URL:           testRemoteURL,
		ContentDigest: encrypted.Digest,
		Secret:        encrypted.Secret,
		Salt:          encrypted.Salt,
		Nonce:         encrypted.Nonce,
		Scheme:        RemoteAttachmentScheme,
		ContentLength: len(encrypted.Payload),
		Filename:      testFilename,
	}
	resolved, err := p.DecryptRemote(remote, encrypted.Payload)
	require.NoError(t, err)
	assert.Equal(t, Attachment{Filename: testFilename, MimeType: testMimeType, Data: []byte("pixels")}, resolved.Content)
}
