package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumAddressVectors(t *testing.T) {
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}

	for _, want := range vectors {
		t.Run(want, func(t *testing.T) {
			got, err := ChecksumAddress(strings.ToLower(want))
			require.NoError(t, err)
			assert.Equal(t, want, got)

			got, err = ChecksumAddress(strings.ToUpper(want[2:]))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestChecksumAddressRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "0x1234", "0xzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"} {
		_, err := ChecksumAddress(input)
		assert.Error(t, err, "input %q", input)
		assert.False(t, IsAddress(input))
	}
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		NormalizeAddress("0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED"))
	assert.Equal(t, "group-1234", NormalizeAddress("group-1234"))
}
