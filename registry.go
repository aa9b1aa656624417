package xmtpcore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/consent"
	"github.com/opd-ai/xmtpcore/content"
	"github.com/opd-ai/xmtpcore/crypto"
	"github.com/opd-ai/xmtpcore/factory"
	"github.com/opd-ai/xmtpcore/interfaces"
	"github.com/opd-ai/xmtpcore/messaging"
	"github.com/opd-ai/xmtpcore/outbox"
	"github.com/opd-ai/xmtpcore/stream"
)

// ErrClosed is returned by operations on a closed registry.
var ErrClosed = errors.New("registry is closed")

// Registry owns the state shared by every client of one process: the codec
// registry, the stream manager and event bus, the consent caches and the
// outbox. All of it is keyed by client address.
type Registry struct {
	options  *Options
	engine   interfaces.IMessagingEngine
	pipeline *content.Pipeline
	decoder  *messaging.Decoder
	streams  *stream.Manager
	consent  *consent.Registry
	outbox   *outbox.Outbox

	mu      sync.Mutex
	clients map[string]*Client
	closed  bool
}

// New creates a registry. external is the native engine binding; it may be
// nil when options select the simulated engine.
func New(options *Options, external interfaces.IMessagingEngine) (*Registry, error) {
	if options == nil {
		options = NewOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	level, _ := options.logLevel()
	logrus.SetLevel(level)

	engineFactory := factory.NewEngineFactory()
	if options.UseSimulation {
		engineFactory.SwitchToSimulation()
	}
	engine, err := engineFactory.CreateEngine(external)
	if err != nil {
		return nil, err
	}

	pipeline, err := options.pipeline(content.NewRegistry())
	if err != nil {
		return nil, err
	}

	r := &Registry{
		options:  options,
		engine:   engine,
		pipeline: pipeline,
		decoder:  messaging.NewDecoder(pipeline),
		consent:  consent.NewRegistry(engine),
		clients:  make(map[string]*Client),
	}
	r.streams = stream.NewManager(engine, r.decoder, stream.NewBus())

	if options.OutboxPath != "" {
		r.outbox, err = outbox.Open(options.OutboxPath)
		if err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":    "New",
		"environment": options.Environment,
		"simulation":  options.UseSimulation,
		"compression": options.Compression,
		"outbox":      options.OutboxPath != "",
	}).Info("Registry created")

	return r, nil
}

// Engine returns the engine the registry talks to.
func (r *Registry) Engine() interfaces.IMessagingEngine {
	return r.engine
}

// Codecs returns the codec registry. Codecs registered here are visible to
// every client.
func (r *Registry) Codecs() *content.Registry {
	return r.pipeline.Registry()
}

// RegisterCodec adds or replaces a codec for every client.
func (r *Registry) RegisterCodec(codec content.Codec) error {
	return r.pipeline.Registry().Register(codec)
}

// Pipeline returns the shared content pipeline.
func (r *Registry) Pipeline() *content.Pipeline {
	return r.pipeline
}

// Events returns the bus every client's streams publish on.
func (r *Registry) Events() *stream.Bus {
	return r.streams.Bus()
}

// Auth opens a session for an existing address and returns its client.
func (r *Registry) Auth(ctx context.Context, address string) (*Client, error) {
	if !crypto.IsAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	address = crypto.NormalizeAddress(address)
	if err := r.engine.Auth(ctx, address, r.options.authOptions()); err != nil {
		return nil, r.engineError("Auth", address, err)
	}
	return r.attach(address)
}

// CreateRandom creates a new identity and returns its client.
func (r *Registry) CreateRandom(ctx context.Context) (*Client, error) {
	address, err := r.engine.CreateRandom(ctx, r.options.authOptions())
	if err != nil {
		return nil, r.engineError("CreateRandom", "", err)
	}
	return r.attach(crypto.NormalizeAddress(address))
}

// CreateFromKeyBundle restores an identity from an exported key bundle.
func (r *Registry) CreateFromKeyBundle(ctx context.Context, keyBundle string) (*Client, error) {
	address, err := r.engine.CreateFromKeyBundle(ctx, keyBundle, r.options.authOptions())
	if err != nil {
		return nil, r.engineError("CreateFromKeyBundle", "", err)
	}
	return r.attach(crypto.NormalizeAddress(address))
}

// StaticCanMessage checks whether peerAddress is on the network without an
// authenticated client.
func (r *Registry) StaticCanMessage(ctx context.Context, peerAddress string) (bool, error) {
	ok, err := r.engine.StaticCanMessage(ctx, crypto.NormalizeAddress(peerAddress), r.options.authOptions())
	if err != nil {
		return false, r.engineError("StaticCanMessage", "", err)
	}
	return ok, nil
}

// DeleteLocalDatabase closes the client for address, if any, and removes
// the engine's local store.
func (r *Registry) DeleteLocalDatabase(ctx context.Context, address string) error {
	address = crypto.NormalizeAddress(address)
	if c, ok := r.Client(address); ok {
		if err := c.Close(ctx); err != nil {
			return err
		}
	}
	if err := r.engine.DeleteLocalDatabase(ctx, address); err != nil {
		return r.engineError("DeleteLocalDatabase", address, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "DeleteLocalDatabase",
		"client_address": address,
	}).Info("Local database deleted")
	return nil
}

// Client returns the attached client for address.
func (r *Registry) Client(address string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[crypto.NormalizeAddress(address)]
	return c, ok
}

// Clients returns the addresses of attached clients, sorted.
func (r *Registry) Clients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.clients))
	for address := range r.clients {
		out = append(out, address)
	}
	sort.Strings(out)
	return out
}

// attach returns the client for address, creating it on first use.
func (r *Registry) attach(address string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if c, ok := r.clients[address]; ok {
		return c, nil
	}
	c := newClient(r, address)
	r.clients[address] = c

	logrus.WithFields(logrus.Fields{
		"function":       "attach",
		"client_address": address,
	}).Info("Client attached")

	return c, nil
}

func (r *Registry) detach(address string) {
	r.mu.Lock()
	delete(r.clients, address)
	r.mu.Unlock()
	r.consent.Remove(address)
}

// Close closes every client and stream and the outbox.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	var errs []error
	for _, c := range clients {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.streams.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if r.outbox != nil {
		if err := r.outbox.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "Close",
		"clients":  len(clients),
	}).Info("Registry closed")

	return errors.Join(errs...)
}

func (r *Registry) engineError(op, address string, err error) error {
	logrus.WithFields(logrus.Fields{
		"function":       op,
		"client_address": address,
		"error":          err.Error(),
	}).Error("Engine call failed")
	return interfaces.WrapEngineError(op, address, err)
}
