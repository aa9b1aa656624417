package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// SecretSize is the size of the per-attachment secret
	SecretSize = 32
	// SaltSize is the size of the HKDF salt
	SaltSize = 32
	// NonceSize is the AES-GCM nonce size
	NonceSize = 12
	// KeySize is the derived AES-256 key size
	KeySize = 32
)

// ErrDigestMismatch indicates a downloaded payload does not match its digest.
var ErrDigestMismatch = errors.New("content digest mismatch")

// EncryptedPayload is an attachment payload encrypted with a one-time secret.
// Digest is the hex SHA-256 of Payload.
type EncryptedPayload struct {
	Payload []byte
	Digest  string
	Secret  []byte
	Salt    []byte
	Nonce   []byte
}

// EncryptPayload encrypts plaintext under a fresh secret. The AES-256-GCM key
// is derived from the secret and salt with HKDF-SHA256.
func EncryptPayload(plaintext []byte) (*EncryptedPayload, error) {
	logger := NewLogger("EncryptPayload").WithField("plaintext_size", len(plaintext))
	logger.Entry("encrypting attachment payload")
	defer logger.Exit()

	if len(plaintext) == 0 {
		return nil, errors.New("cannot encrypt empty payload")
	}

	secret, err := randomBytes(SecretSize)
	if err != nil {
		return nil, err
	}
	salt, err := randomBytes(SaltSize)
	if err != nil {
		return nil, err
	}
	nonce, err := randomBytes(NonceSize)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(secret, salt)
	if err != nil {
		logger.WithError(err, "key_derivation", "EncryptPayload").Error("Failed to derive attachment key")
		return nil, err
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	digest := sha256.Sum256(ciphertext)

	logger.WithFields(SecureFieldHash(ciphertext, "ciphertext")).Debug("Attachment payload encrypted")

	return &EncryptedPayload{
		Payload: ciphertext,
		Digest:  hex.EncodeToString(digest[:]),
		Secret:  secret,
		Salt:    salt,
		Nonce:   nonce,
	}, nil
}

// DecryptPayload verifies the digest and decrypts the payload.
func DecryptPayload(encrypted *EncryptedPayload) ([]byte, error) {
	if encrypted == nil {
		return nil, errors.New("encrypted payload cannot be nil")
	}
	logger := NewLogger("DecryptPayload").WithField("payload_size", len(encrypted.Payload))

	digest := sha256.Sum256(encrypted.Payload)
	expected, err := hex.DecodeString(encrypted.Digest)
	if err != nil || subtle.ConstantTimeCompare(digest[:], expected) != 1 {
		logger.Warn("Attachment digest does not match payload")
		return nil, ErrDigestMismatch
	}
	if len(encrypted.Nonce) != NonceSize {
		return nil, fmt.Errorf("invalid nonce size %d", len(encrypted.Nonce))
	}

	aead, err := newAEAD(encrypted.Secret, encrypted.Salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, encrypted.Nonce, encrypted.Payload, nil)
	if err != nil {
		logger.WithError(err, "authentication", "DecryptPayload").Warn("Attachment payload failed authentication")
		return nil, fmt.Errorf("decrypt attachment: %w", err)
	}
	return plaintext, nil
}

// DeriveKey derives the AES-256 key for an attachment secret and salt.
func DeriveKey(secret, salt []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret cannot be empty")
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, nil), key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

func newAEAD(secret, salt []byte) (cipher.AEAD, error) {
	key, err := DeriveKey(secret, salt)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return buf, nil
}
