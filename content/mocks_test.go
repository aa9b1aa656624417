package content

import (
	"errors"
	"fmt"
)

// coffee is the value type handled by mockCoffeeCodec.
type coffee struct {
	Size string
}

// mockCoffeeCodec is an application codec used to exercise registration.
type mockCoffeeCodec struct {
	label       string
	failDecode  bool
	noFallback  bool
	encodeCalls int
}

func (c *mockCoffeeCodec) ContentType() TypeID { return testCustomType }

func (c *mockCoffeeCodec) Encode(value any) (*EncodedContent, error) {
	c.encodeCalls++
	v, ok := value.(coffee)
	if !ok {
		return nil, unexpectedValue("coffee", value)
	}
	return &EncodedContent{
		Type:     testCustomType,
		Fallback: stringPtr("encoder-set fallback"),
		Content:  []byte(v.Size),
	}, nil
}

func (c *mockCoffeeCodec) Decode(encoded *EncodedContent) (any, error) {
	if c.failDecode {
		return nil, errors.New("mock decode failure")
	}
	return coffee{Size: string(encoded.Content)}, nil
}

func (c *mockCoffeeCodec) Fallback(value any) (string, bool) {
	if c.noFallback {
		return "", false
	}
	v, _ := value.(coffee)
	return fmt.Sprintf("[%s] a %s coffee", c.label, v.Size), true
}

// mockOverrideCodec tries to replace the reserved membership change codec.
type mockOverrideCodec struct {
	GroupMembershipChangeCodec
}
