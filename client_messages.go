package xmtpcore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/content"
	"github.com/opd-ai/xmtpcore/interfaces"
	"github.com/opd-ai/xmtpcore/messaging"
)

// ErrOutboxDisabled is returned by FlushOutbox when no outbox is configured.
var ErrOutboxDisabled = errors.New("outbox is not configured")

// PreparedMessage is a message encrypted by the engine but not yet
// published. OutboxID is set when the registry has an outbox.
type PreparedMessage struct {
	interfaces.PreparedLocalMessage
	Topic    string
	OutboxID string
}

func (c *Client) codec(contentType content.TypeID) (content.Codec, error) {
	return c.registry.pipeline.Registry().Resolve(contentType)
}

// SendMessage encodes value with the codec registered for contentType and
// sends it to a conversation topic.
func (c *Client) SendMessage(ctx context.Context, topic string, value any, contentType content.TypeID) (string, error) {
	codec, err := c.codec(contentType)
	if err != nil {
		return "", err
	}
	return c.messages.Send(ctx, topic, value, codec)
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, topic, text string) (string, error) {
	return c.SendMessage(ctx, topic, text, content.ContentTypeText)
}

// SendMessageToGroup encodes value and sends it to a group.
func (c *Client) SendMessageToGroup(ctx context.Context, groupID string, value any, contentType content.TypeID) (string, error) {
	codec, err := c.codec(contentType)
	if err != nil {
		return "", err
	}
	return c.messages.SendToGroup(ctx, groupID, value, codec)
}

// PrepareMessage has the engine encrypt a message without publishing it.
// With an outbox configured the prepared message is also queued there so
// FlushOutbox can publish it later.
func (c *Client) PrepareMessage(ctx context.Context, topic string, value any, contentType content.TypeID) (*PreparedMessage, error) {
	codec, err := c.codec(contentType)
	if err != nil {
		return nil, err
	}
	prepared, err := c.messages.Prepare(ctx, topic, value, codec)
	if err != nil {
		return nil, err
	}

	msg := &PreparedMessage{PreparedLocalMessage: *prepared, Topic: topic}
	if box := c.registry.outbox; box != nil {
		entry, err := box.Enqueue(ctx, c.address, topic, *prepared)
		if err != nil {
			return nil, err
		}
		msg.OutboxID = entry.ID
	}
	return msg, nil
}

// SendPreparedMessage publishes a message returned by PrepareMessage.
func (c *Client) SendPreparedMessage(ctx context.Context, prepared *PreparedMessage) (string, error) {
	if prepared == nil {
		return "", errors.New("prepared message cannot be nil")
	}
	id, err := c.messages.SendPrepared(ctx, &prepared.PreparedLocalMessage)

	if box := c.registry.outbox; box != nil && prepared.OutboxID != "" {
		if err != nil {
			if markErr := box.MarkFailed(ctx, prepared.OutboxID, err); markErr != nil {
				return "", errors.Join(err, markErr)
			}
			return "", err
		}
		if markErr := box.MarkSent(ctx, prepared.OutboxID); markErr != nil {
			return id, markErr
		}
	}
	return id, err
}

// FlushOutbox publishes every queued message of this client, oldest first.
// Failures are recorded on their entries and do not stop the flush. It
// returns the ids of the messages sent.
func (c *Client) FlushOutbox(ctx context.Context) ([]string, error) {
	box := c.registry.outbox
	if box == nil {
		return nil, ErrOutboxDisabled
	}
	entries, err := box.Pending(ctx, c.address)
	if err != nil {
		return nil, err
	}

	var (
		sent []string
		errs []error
	)
	for _, entry := range entries {
		prepared := entry.Prepared
		id, err := c.messages.SendPrepared(ctx, &prepared)
		if err != nil {
			errs = append(errs, fmt.Errorf("outbox entry %s: %w", entry.ID, err))
			if markErr := box.MarkFailed(ctx, entry.ID, err); markErr != nil {
				errs = append(errs, markErr)
			}
			continue
		}
		if err := box.MarkSent(ctx, entry.ID); err != nil {
			errs = append(errs, err)
		}
		sent = append(sent, id)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "FlushOutbox",
		"client_address": c.address,
		"pending":        len(entries),
		"sent":           len(sent),
		"failed":         len(entries) - len(sent),
	}).Info("Outbox flushed")

	return sent, errors.Join(errs...)
}

func (c *Client) ListMessages(ctx context.Context, topic string, opts messaging.ListOptions) ([]*messaging.DecodedMessage, error) {
	return c.messages.ListMessages(ctx, topic, opts)
}

// ListBatchMessages runs several topic queries and concatenates the results
// in request order.
func (c *Client) ListBatchMessages(ctx context.Context, queries []messaging.Query) ([]*messaging.DecodedMessage, error) {
	return c.messages.ListBatchMessages(ctx, queries)
}

func (c *Client) GroupMessages(ctx context.Context, groupID string, opts messaging.ListOptions) ([]*messaging.DecodedMessage, error) {
	return c.messages.GroupMessages(ctx, groupID, opts)
}

func (c *Client) DecodeMessage(ctx context.Context, topic, encryptedMessage string) (*messaging.DecodedMessage, error) {
	return c.messages.DecodeMessage(ctx, topic, encryptedMessage)
}

func (c *Client) ProcessGroupMessage(ctx context.Context, groupID, encryptedMessage string) (*messaging.DecodedMessage, error) {
	return c.messages.ProcessGroupMessage(ctx, groupID, encryptedMessage)
}

func (c *Client) attachmentDir() string {
	if dir := c.registry.options.AttachmentDir; dir != "" {
		return dir
	}
	return os.TempDir()
}

// EncryptAttachment encrypts a local file for upload as a remote
// attachment.
func (c *Client) EncryptAttachment(file content.DecryptedLocalAttachment) (*content.EncryptedLocalAttachment, error) {
	return c.registry.pipeline.EncryptLocalAttachment(file, c.attachmentDir())
}

// DecryptAttachment decrypts a downloaded remote attachment file.
func (c *Client) DecryptAttachment(file content.EncryptedLocalAttachment) (*content.DecryptedLocalAttachment, error) {
	return c.registry.pipeline.DecryptLocalAttachment(file, c.attachmentDir())
}
