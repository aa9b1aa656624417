package content

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/opd-ai/xmtpcore/limits"
)

// maxNestedLevels bounds CBOR nesting. An envelope is a flat map whose
// deepest value is the type id struct.
const maxNestedLevels = 8

// encMode uses Core Deterministic Encoding so identical envelopes always
// serialize to identical bytes.
var encMode cbor.EncMode

// decMode ignores unknown fields for forward compatibility. Input size is
// capped by limits.ValidateEncodedContent before decoding.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("content: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		MaxNestedLevels: maxNestedLevels,
	}.DecMode()
	if err != nil {
		panic("content: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal serializes an envelope for the engine boundary.
func Marshal(encoded *EncodedContent) ([]byte, error) {
	if encoded == nil {
		return nil, fmt.Errorf("cannot marshal nil encoded content")
	}
	data, err := encMode.Marshal(encoded)
	if err != nil {
		return nil, fmt.Errorf("marshal encoded content: %w", err)
	}
	if err := limits.ValidateEncodedContent(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Unmarshal parses an envelope received from the engine.
func Unmarshal(data []byte) (*EncodedContent, error) {
	if err := limits.ValidateEncodedContent(data); err != nil {
		return nil, err
	}
	var encoded EncodedContent
	if err := decMode.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("unmarshal encoded content: %w", err)
	}
	return &encoded, nil
}
