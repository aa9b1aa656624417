package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ChecksumAddress returns the EIP-55 checksummed form of an Ethereum
// address. Input may be any case, with or without the 0x prefix.
func ChecksumAddress(address string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if len(trimmed) != 40 {
		return "", fmt.Errorf("invalid address length %d", len(trimmed))
	}
	lower := strings.ToLower(trimmed)
	if _, err := hex.DecodeString(lower); err != nil {
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	hash := hex.EncodeToString(hasher.Sum(nil))

	out := make([]byte, 0, 42)
	out = append(out, '0', 'x')
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out), nil
}

// IsAddress reports whether s parses as an Ethereum address.
func IsAddress(s string) bool {
	_, err := ChecksumAddress(s)
	return err == nil
}

// NormalizeAddress checksums s when it is an address and returns it
// unchanged otherwise. Inbox ids and group ids pass through.
func NormalizeAddress(s string) string {
	if checksummed, err := ChecksumAddress(s); err == nil {
		return checksummed
	}
	return s
}
