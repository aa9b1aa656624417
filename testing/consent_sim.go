package testing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opd-ai/xmtpcore/interfaces"
)

func consentKey(entryType, value string) string {
	return entryType + "|" + value
}

func (c *simClient) upsertConsent(rec interfaces.ConsentRecord) {
	key := consentKey(rec.EntryType, rec.Value)
	if i, ok := c.consentI[key]; ok {
		c.consent[i] = rec
		return
	}
	c.consentI[key] = len(c.consent)
	c.consent = append(c.consent, rec)
}

// SetConsent changes the authoritative consent list directly, as another
// installation of the same account would.
func (s *SimulatedEngine) SetConsent(clientAddress string, rec interfaces.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.client(clientAddress)
	if err != nil {
		return err
	}
	c.upsertConsent(rec)
	return nil
}

// UpdateConsent implements IConsentEngine.UpdateConsent.
func (s *SimulatedEngine) UpdateConsent(ctx context.Context, clientAddress string, records []interfaces.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("UpdateConsent", clientAddress); err != nil {
		return err
	}
	c, err := s.client(clientAddress)
	if err != nil {
		return err
	}
	for _, rec := range records {
		switch rec.State {
		case "allowed", "denied", "unknown":
		default:
			return fmt.Errorf("invalid consent state %q", rec.State)
		}
		c.upsertConsent(rec)
	}
	return nil
}

// RefreshConsentList implements IConsentEngine.RefreshConsentList.
func (s *SimulatedEngine) RefreshConsentList(ctx context.Context, clientAddress string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("RefreshConsentList", clientAddress); err != nil {
		return nil, err
	}
	c, err := s.client(clientAddress)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(c.consent))
	for _, rec := range c.consent {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, string(data))
	}
	return out, nil
}

// ConversationConsentState implements IConsentEngine.ConversationConsentState.
func (s *SimulatedEngine) ConversationConsentState(ctx context.Context, clientAddress, topic string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("ConversationConsentState", clientAddress); err != nil {
		return "", err
	}
	c, err := s.client(clientAddress)
	if err != nil {
		return "", err
	}

	var key string
	if conv, ok := s.conversations[topic]; ok {
		key = consentKey("address", conv.other(clientAddress))
	} else {
		for id, g := range s.groups {
			if g.topic == topic || id == topic {
				key = consentKey("groupId", id)
				break
			}
		}
	}
	if key == "" {
		return "", fmt.Errorf("conversation %s not found", topic)
	}
	if i, ok := c.consentI[key]; ok {
		return c.consent[i].State, nil
	}
	return "unknown", nil
}
