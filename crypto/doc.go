// Package crypto implements the client-side cryptography the messaging core
// performs itself. Conversation encryption and signing belong to the engine;
// this package covers the pieces that never leave the client.
//
// # Attachment Encryption
//
// Remote attachments are encrypted with a one-time 32-byte secret. The
// AES-256-GCM key is derived from the secret and a random salt with
// HKDF-SHA256, and the ciphertext is addressed by its SHA-256 digest:
//
//	encrypted, err := crypto.EncryptPayload(serializedContent)
//	if err != nil {
//	    return err
//	}
//	// upload encrypted.Payload, share Digest/Secret/Salt/Nonce in the message
//
//	plaintext, err := crypto.DecryptPayload(encrypted)
//
// DecryptPayload checks the digest before attempting decryption and returns
// ErrDigestMismatch when a download was altered.
//
// # Address Normalization
//
// Ethereum addresses are compared in their EIP-55 checksummed form, computed
// with Keccak-256 from golang.org/x/crypto/sha3:
//
//	addr, err := crypto.ChecksumAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
//	// addr == "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
//
// # Secure Memory
//
// Derived keys are wiped with ZeroBytes once the cipher has been built.
package crypto
