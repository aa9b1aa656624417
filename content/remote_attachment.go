package content

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/opd-ai/xmtpcore/crypto"
)

// ContentTypeRemoteAttachment is an encrypted file hosted at a URL.
var ContentTypeRemoteAttachment = TypeID{AuthorityID: "xmtp.org", TypeID: "remoteStaticAttachment", VersionMajor: 1, VersionMinor: 0}

// RemoteAttachmentScheme is the only URL scheme accepted for remote files.
const RemoteAttachmentScheme = "https://"

// RemoteAttachment points at an encrypted, serialized EncodedContent.
type RemoteAttachment struct {
	URL           string
	ContentDigest string
	Secret        []byte
	Salt          []byte
	Nonce         []byte
	Scheme        string
	ContentLength int
	Filename      string
}

func (r RemoteAttachment) validate() error {
	if !strings.HasPrefix(r.URL, RemoteAttachmentScheme) {
		return fmt.Errorf("remote attachment url must use %s", RemoteAttachmentScheme)
	}
	if r.Scheme != RemoteAttachmentScheme {
		return fmt.Errorf("unsupported remote attachment scheme %q", r.Scheme)
	}
	if r.ContentDigest == "" {
		return errors.New("remote attachment content digest is required")
	}
	if len(r.Secret) == 0 || len(r.Salt) == 0 || len(r.Nonce) == 0 {
		return errors.New("remote attachment key material is incomplete")
	}
	return nil
}

// Payload returns the encrypted payload described by r in the form the
// crypto package decrypts.
func (r RemoteAttachment) Payload(ciphertext []byte) *crypto.EncryptedPayload {
	return &crypto.EncryptedPayload{
		Payload: ciphertext,
		Digest:  r.ContentDigest,
		Secret:  r.Secret,
		Salt:    r.Salt,
		Nonce:   r.Nonce,
	}
}

// RemoteAttachmentCodec encodes RemoteAttachment values. The URL is the
// payload; key material travels hex-encoded in parameters.
type RemoteAttachmentCodec struct{}

func (RemoteAttachmentCodec) ContentType() TypeID { return ContentTypeRemoteAttachment }

func (RemoteAttachmentCodec) Encode(value any) (*EncodedContent, error) {
	remote, ok := asRemoteAttachment(value)
	if !ok {
		return nil, unexpectedValue("remote attachment", value)
	}
	if err := remote.validate(); err != nil {
		return nil, err
	}
	return &EncodedContent{
		Type: ContentTypeRemoteAttachment,
		Parameters: map[string]string{
			"contentDigest": remote.ContentDigest,
			"secret":        hex.EncodeToString(remote.Secret),
			"salt":          hex.EncodeToString(remote.Salt),
			"nonce":         hex.EncodeToString(remote.Nonce),
			"scheme":        remote.Scheme,
			"contentLength": strconv.Itoa(remote.ContentLength),
			"filename":      remote.Filename,
		},
		Content: []byte(remote.URL),
	}, nil
}

func (RemoteAttachmentCodec) Decode(encoded *EncodedContent) (any, error) {
	params := encoded.Parameters
	remote := RemoteAttachment{
		URL:           string(encoded.Content),
		ContentDigest: params["contentDigest"],
		Scheme:        params["scheme"],
		Filename:      params["filename"],
	}

	var err error
	if remote.Secret, err = decodeHexParam(params, "secret"); err != nil {
		return nil, err
	}
	if remote.Salt, err = decodeHexParam(params, "salt"); err != nil {
		return nil, err
	}
	if remote.Nonce, err = decodeHexParam(params, "nonce"); err != nil {
		return nil, err
	}
	if length, ok := params["contentLength"]; ok && length != "" {
		if remote.ContentLength, err = strconv.Atoi(length); err != nil {
			return nil, fmt.Errorf("invalid contentLength parameter: %w", err)
		}
	}
	if err := remote.validate(); err != nil {
		return nil, err
	}
	return remote, nil
}

func (RemoteAttachmentCodec) Fallback(value any) (string, bool) {
	remote, ok := asRemoteAttachment(value)
	if !ok {
		return "", false
	}
	return attachmentFallback(remote.Filename), true
}

// EncryptEncoded prepares value with codec, serializes the envelope and
// encrypts it for upload. The result's key material feeds a RemoteAttachment.
func (p *Pipeline) EncryptEncoded(value any, codec Codec) (*crypto.EncryptedPayload, error) {
	encoded, err := p.Prepare(value, codec)
	if err != nil {
		return nil, err
	}
	data, err := Marshal(encoded)
	if err != nil {
		return nil, err
	}
	return crypto.EncryptPayload(data)
}

// DecryptRemote decrypts a downloaded payload described by remote and
// resolves the envelope inside it.
func (p *Pipeline) DecryptRemote(remote RemoteAttachment, ciphertext []byte) (*Resolved, error) {
	plaintext, err := crypto.DecryptPayload(remote.Payload(ciphertext))
	if err != nil {
		return nil, &DecodeError{Codec: "RemoteAttachmentCodec", Type: ContentTypeRemoteAttachment.String(), Err: err}
	}
	return p.ResolveBytes(plaintext)
}

func decodeHexParam(params map[string]string, name string) ([]byte, error) {
	value, ok := params[name]
	if !ok {
		return nil, fmt.Errorf("missing %s parameter", name)
	}
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter: %w", name, err)
	}
	return decoded, nil
}

func asRemoteAttachment(value any) (RemoteAttachment, bool) {
	switch v := value.(type) {
	case RemoteAttachment:
		return v, true
	case *RemoteAttachment:
		if v != nil {
			return *v, true
		}
	}
	return RemoteAttachment{}, false
}
