package content

import (
	"errors"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry maps content type ids to codecs. It is safe for concurrent use.
type Registry struct {
	codecs   map[string]Codec
	reserved map[string]bool
	mu       sync.RWMutex
}

// NewRegistry creates a registry with every built-in codec registered.
func NewRegistry() *Registry {
	r := &Registry{
		codecs:   make(map[string]Codec),
		reserved: make(map[string]bool),
	}

	builtins := []Codec{
		TextCodec{},
		ReactionCodec{},
		ReadReceiptCodec{},
		AttachmentCodec{},
		RemoteAttachmentCodec{},
		NewReplyCodec(r),
	}
	for _, codec := range builtins {
		r.codecs[codec.ContentType().String()] = codec
	}

	groupChange := GroupMembershipChangeCodec{}
	key := groupChange.ContentType().String()
	r.codecs[key] = groupChange
	r.reserved[key] = true

	logrus.WithFields(logrus.Fields{
		"function": "NewRegistry",
		"codecs":   len(r.codecs),
	}).Debug("Content registry initialized with built-in codecs")

	return r
}

// Register adds or replaces the codec for its content type. The last
// registration for a type wins, except for reserved types.
func (r *Registry) Register(codec Codec) error {
	if codec == nil {
		return errors.New("codec cannot be nil")
	}
	id := codec.ContentType()
	if id.IsZero() {
		return errors.New("codec has no content type")
	}
	key := id.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reserved[key] {
		logrus.WithFields(logrus.Fields{
			"function":     "Register",
			"content_type": key,
		}).Warn("Rejected override of reserved content type")
		return ErrReservedContentType
	}

	_, replaced := r.codecs[key]
	r.codecs[key] = codec

	logrus.WithFields(logrus.Fields{
		"function":     "Register",
		"content_type": key,
		"replaced":     replaced,
	}).Debug("Codec registered")

	return nil
}

// Resolve returns the codec for id or a *CodecNotFoundError.
func (r *Registry) Resolve(id TypeID) (Codec, error) {
	key := id.String()

	r.mu.RLock()
	codec, exists := r.codecs[key]
	r.mu.RUnlock()

	if !exists {
		return nil, &CodecNotFoundError{Type: key}
	}
	return codec, nil
}

// Codecs returns the registered content type ids in sorted order.
func (r *Registry) Codecs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.codecs))
	for key := range r.codecs {
		ids = append(ids, key)
	}
	sort.Strings(ids)
	return ids
}
