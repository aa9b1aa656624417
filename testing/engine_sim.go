package testing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/crypto"
	"github.com/opd-ai/xmtpcore/interfaces"
)

// simulatedEpoch is the first timestamp the simulated clock hands out.
const simulatedEpoch int64 = 1700000000000

// CallRecord is one engine call, kept for test verification.
type CallRecord struct {
	Op            string
	ClientAddress string
	Err           error
}

// SimulatedEngine is an in-memory messaging engine. Every client lives in
// the same process so messages sent by one address are visible to the others.
type SimulatedEngine struct {
	mu sync.RWMutex

	clients       map[string]*simClient
	conversations map[string]*simConversation
	groups        map[string]*simGroup
	messages      map[string][]MessageRecord
	prepared      map[string]simPrepared
	streams       map[interfaces.StreamKey]*simStream

	failures map[string]error
	calls    []CallRecord
	clock    int64
}

type simClient struct {
	address  string
	env      string
	order    []string
	consent  []interfaces.ConsentRecord
	consentI map[string]int
}

// NewSimulatedEngine creates an empty simulated engine.
func NewSimulatedEngine() *SimulatedEngine {
	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function": "NewSimulatedEngine",
	}).Info("Creating simulated messaging engine for testing")

	return &SimulatedEngine{
		clients:       make(map[string]*simClient),
		conversations: make(map[string]*simConversation),
		groups:        make(map[string]*simGroup),
		messages:      make(map[string][]MessageRecord),
		prepared:      make(map[string]simPrepared),
		streams:       make(map[interfaces.StreamKey]*simStream),
		failures:      make(map[string]error),
		clock:         simulatedEpoch,
	}
}

// IsSimulation reports that this engine performs no real network operations.
func (s *SimulatedEngine) IsSimulation() bool {
	return true
}

// FailNext makes the next call to op return err.
func (s *SimulatedEngine) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Calls returns every engine call made so far.
func (s *SimulatedEngine) Calls() []CallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := make([]CallRecord, len(s.calls))
	copy(log, s.calls)
	return log
}

// ClearCalls empties the call log.
func (s *SimulatedEngine) ClearCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// SetClock sets the timestamp handed to the next message or conversation.
func (s *SimulatedEngine) SetClock(ms int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = ms
}

// begin records a call and returns any injected failure. Callers hold s.mu.
func (s *SimulatedEngine) begin(op, clientAddress string) error {
	err := s.failures[op]
	delete(s.failures, op)
	s.calls = append(s.calls, CallRecord{Op: op, ClientAddress: clientAddress, Err: err})

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":       "SimulatedEngine." + op,
			"client_address": clientAddress,
			"error":          err.Error(),
		}).Warn("Injected engine failure")
	}
	return err
}

func (s *SimulatedEngine) tick() int64 {
	s.clock++
	return s.clock
}

func (s *SimulatedEngine) client(address string) (*simClient, error) {
	c, ok := s.clients[address]
	if !ok {
		return nil, fmt.Errorf("client %s is not authenticated", address)
	}
	return c, nil
}

func (s *SimulatedEngine) register(address, env string) *simClient {
	if c, ok := s.clients[address]; ok {
		return c
	}
	c := &simClient{address: address, env: env, consentI: make(map[string]int)}
	s.clients[address] = c
	return c
}

func validateAuth(opts interfaces.AuthOptions) error {
	switch opts.Environment {
	case interfaces.EnvironmentLocal, interfaces.EnvironmentDev, interfaces.EnvironmentProduction:
	default:
		return fmt.Errorf("invalid environment %q", opts.Environment)
	}
	if opts.DBEncryptionKey != nil && len(opts.DBEncryptionKey) != 32 {
		return fmt.Errorf("database encryption key must be 32 bytes, got %d", len(opts.DBEncryptionKey))
	}
	return nil
}

// Auth implements IIdentityEngine.Auth.
func (s *SimulatedEngine) Auth(ctx context.Context, address string, opts interfaces.AuthOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("Auth", address); err != nil {
		return err
	}
	if err := validateAuth(opts); err != nil {
		return err
	}
	if !crypto.IsAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}
	s.register(crypto.NormalizeAddress(address), opts.Environment)
	return nil
}

// CreateRandom implements IIdentityEngine.CreateRandom.
func (s *SimulatedEngine) CreateRandom(ctx context.Context, opts interfaces.AuthOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("CreateRandom", ""); err != nil {
		return "", err
	}
	if err := validateAuth(opts); err != nil {
		return "", err
	}

	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	address, err := crypto.ChecksumAddress(hex.EncodeToString(raw))
	if err != nil {
		return "", err
	}
	s.register(address, opts.Environment)

	logrus.WithFields(logrus.Fields{
		"function": "SimulatedEngine.CreateRandom",
		"address":  address,
	}).Info("Simulated identity created")

	return address, nil
}

const (
	keyBundlePrefix    = "simulated-key-bundle:"
	publicBundlePrefix = "simulated-public-bundle:"
)

// CreateFromKeyBundle implements IIdentityEngine.CreateFromKeyBundle.
func (s *SimulatedEngine) CreateFromKeyBundle(ctx context.Context, keyBundle string, opts interfaces.AuthOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("CreateFromKeyBundle", ""); err != nil {
		return "", err
	}
	if err := validateAuth(opts); err != nil {
		return "", err
	}
	if !strings.HasPrefix(keyBundle, keyBundlePrefix) {
		return "", fmt.Errorf("malformed key bundle")
	}
	address := strings.TrimPrefix(keyBundle, keyBundlePrefix)
	if !crypto.IsAddress(address) {
		return "", fmt.Errorf("malformed key bundle")
	}
	address = crypto.NormalizeAddress(address)
	s.register(address, opts.Environment)
	return address, nil
}

// ExportKeyBundle implements IIdentityEngine.ExportKeyBundle.
func (s *SimulatedEngine) ExportKeyBundle(ctx context.Context, clientAddress string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("ExportKeyBundle", clientAddress); err != nil {
		return "", err
	}
	if _, err := s.client(clientAddress); err != nil {
		return "", err
	}
	return keyBundlePrefix + clientAddress, nil
}

// ExportPublicKeyBundle implements IIdentityEngine.ExportPublicKeyBundle.
// The result is not accepted by CreateFromKeyBundle.
func (s *SimulatedEngine) ExportPublicKeyBundle(ctx context.Context, clientAddress string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("ExportPublicKeyBundle", clientAddress); err != nil {
		return nil, err
	}
	if _, err := s.client(clientAddress); err != nil {
		return nil, err
	}
	return []byte(publicBundlePrefix + clientAddress), nil
}

// DeleteLocalDatabase implements IIdentityEngine.DeleteLocalDatabase. The
// identity stays reachable; its conversation index and consent are dropped.
func (s *SimulatedEngine) DeleteLocalDatabase(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("DeleteLocalDatabase", address); err != nil {
		return err
	}
	c, err := s.client(address)
	if err != nil {
		return err
	}
	c.order = nil
	c.consent = nil
	c.consentI = make(map[string]int)
	return nil
}

// CanMessage implements IIdentityEngine.CanMessage.
func (s *SimulatedEngine) CanMessage(ctx context.Context, clientAddress, peerAddress string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("CanMessage", clientAddress); err != nil {
		return false, err
	}
	_, ok := s.clients[crypto.NormalizeAddress(peerAddress)]
	return ok, nil
}

// CanGroupMessage implements IIdentityEngine.CanGroupMessage.
func (s *SimulatedEngine) CanGroupMessage(ctx context.Context, clientAddress string, peerAddresses []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("CanGroupMessage", clientAddress); err != nil {
		return false, err
	}
	for _, peer := range peerAddresses {
		if _, ok := s.clients[crypto.NormalizeAddress(peer)]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// StaticCanMessage implements IIdentityEngine.StaticCanMessage.
func (s *SimulatedEngine) StaticCanMessage(ctx context.Context, peerAddress string, opts interfaces.AuthOptions) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin("StaticCanMessage", ""); err != nil {
		return false, err
	}
	c, ok := s.clients[crypto.NormalizeAddress(peerAddress)]
	return ok && (opts.Environment == "" || c.env == opts.Environment), nil
}

var _ interfaces.IMessagingEngine = (*SimulatedEngine)(nil)
