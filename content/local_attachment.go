package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const fileScheme = "file://"

// DecryptedLocalAttachment is a plaintext file on local storage.
type DecryptedLocalAttachment struct {
	FileURI  string `json:"fileUri"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename,omitempty"`
}

// RemoteAttachmentMetadata carries the key material needed to decrypt an
// encrypted attachment file once it has been uploaded.
type RemoteAttachmentMetadata struct {
	Filename      string `json:"filename,omitempty"`
	Secret        []byte `json:"secret"`
	Salt          []byte `json:"salt"`
	Nonce         []byte `json:"nonce"`
	ContentDigest string `json:"contentDigest"`
	ContentLength int    `json:"contentLength"`
}

// RemoteAttachment builds the message content for the file uploaded at url.
func (m RemoteAttachmentMetadata) RemoteAttachment(url string) RemoteAttachment {
	return RemoteAttachment{
		URL:           url,
		ContentDigest: m.ContentDigest,
		Secret:        m.Secret,
		Salt:          m.Salt,
		Nonce:         m.Nonce,
		Scheme:        RemoteAttachmentScheme,
		ContentLength: m.ContentLength,
		Filename:      m.Filename,
	}
}

// EncryptedLocalAttachment is an encrypted attachment file ready for upload.
type EncryptedLocalAttachment struct {
	EncryptedLocalFileURI string                   `json:"encryptedLocalFileUri"`
	Metadata              RemoteAttachmentMetadata `json:"metadata"`
}

// EncryptLocalAttachment reads file, wraps it as an Attachment envelope and
// writes the encrypted envelope to a new file in dir.
func (p *Pipeline) EncryptLocalAttachment(file DecryptedLocalAttachment, dir string) (*EncryptedLocalAttachment, error) {
	data, err := os.ReadFile(localPath(file.FileURI))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}

	filename := file.Filename
	if filename == "" {
		filename = filepath.Base(localPath(file.FileURI))
	}
	encrypted, err := p.EncryptEncoded(Attachment{
		Filename: filename,
		MimeType: file.MimeType,
		Data:     data,
	}, AttachmentCodec{})
	if err != nil {
		return nil, err
	}

	path, err := writeTemp(dir, "attachment-*.enc", encrypted.Payload)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":  "EncryptLocalAttachment",
		"filename":  filename,
		"plaintext": len(data),
		"encrypted": len(encrypted.Payload),
	}).Debug("Attachment encrypted to local file")

	return &EncryptedLocalAttachment{
		EncryptedLocalFileURI: fileScheme + path,
		Metadata: RemoteAttachmentMetadata{
			Filename:      filename,
			Secret:        encrypted.Secret,
			Salt:          encrypted.Salt,
			Nonce:         encrypted.Nonce,
			ContentDigest: encrypted.Digest,
			ContentLength: len(encrypted.Payload),
		},
	}, nil
}

// DecryptLocalAttachment decrypts an encrypted attachment file and writes the
// plaintext to a new file in dir.
func (p *Pipeline) DecryptLocalAttachment(file EncryptedLocalAttachment, dir string) (*DecryptedLocalAttachment, error) {
	ciphertext, err := os.ReadFile(localPath(file.EncryptedLocalFileURI))
	if err != nil {
		return nil, fmt.Errorf("read encrypted attachment: %w", err)
	}

	resolved, err := p.DecryptRemote(file.Metadata.RemoteAttachment(""), ciphertext)
	if err != nil {
		return nil, err
	}
	attachment, ok := resolved.Content.(Attachment)
	if !ok {
		return nil, &DecodeError{
			Codec: "AttachmentCodec",
			Type:  resolved.Type.String(),
			Err:   errors.New("encrypted file does not contain an attachment"),
		}
	}

	path, err := writeTemp(dir, "attachment-*", attachment.Data)
	if err != nil {
		return nil, err
	}
	return &DecryptedLocalAttachment{
		FileURI:  fileScheme + path,
		MimeType: attachment.MimeType,
		Filename: attachment.Filename,
	}, nil
}

func localPath(uri string) string {
	return strings.TrimPrefix(uri, fileScheme)
}

func writeTemp(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create attachment file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write attachment file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close attachment file: %w", err)
	}
	return f.Name(), nil
}
