package testing

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/interfaces"
)

type simStream struct {
	key  interfaces.StreamKey
	opts interfaces.StreamOptions
	push interfaces.PushFunc
}

// OpenStream implements IStreamEngine.OpenStream. Opening a key that is
// already open is an error so duplicate subscriptions surface in tests.
func (s *SimulatedEngine) OpenStream(ctx context.Context, key interfaces.StreamKey, opts interfaces.StreamOptions, push interfaces.PushFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("OpenStream", key.ClientAddress); err != nil {
		return err
	}
	if _, err := s.client(key.ClientAddress); err != nil {
		return err
	}
	if _, open := s.streams[key]; open {
		return fmt.Errorf("stream %s already open", key)
	}
	s.streams[key] = &simStream{key: key, opts: opts, push: push}

	logrus.WithFields(logrus.Fields{
		"function":   "SimulatedEngine.OpenStream",
		"stream_key": key.String(),
	}).Debug("Simulated stream opened")
	return nil
}

// CloseStream implements IStreamEngine.CloseStream.
func (s *SimulatedEngine) CloseStream(ctx context.Context, key interfaces.StreamKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("CloseStream", key.ClientAddress); err != nil {
		return err
	}
	delete(s.streams, key)
	return nil
}

// Push delivers a synthetic raw record on key. It reports whether a stream
// was open to receive it.
func (s *SimulatedEngine) Push(key interfaces.StreamKey, raw string) bool {
	s.mu.RLock()
	stream, ok := s.streams[key]
	s.mu.RUnlock()

	if !ok {
		return false
	}
	stream.push(raw)
	return true
}

// PushFunc returns the callback registered for key, or nil. Tests use it to
// keep delivering after the engine forgets a stream.
func (s *SimulatedEngine) PushFunc(key interfaces.StreamKey) interfaces.PushFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if stream, ok := s.streams[key]; ok {
		return stream.push
	}
	return nil
}

// OpenStreams returns the keys of every open stream in a stable order.
func (s *SimulatedEngine) OpenStreams() []interfaces.StreamKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]interfaces.StreamKey, 0, len(s.streams))
	for key := range s.streams {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}
