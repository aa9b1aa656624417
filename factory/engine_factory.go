package factory

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/xmtpcore/interfaces"
	"github.com/opd-ai/xmtpcore/testing"
)

// EngineConfig selects which messaging engine backs a client registry.
type EngineConfig struct {
	// UseSimulation selects the in-memory simulated engine
	UseSimulation bool
}

// EngineFactory creates messaging engine implementations based on
// configuration. It is safe for concurrent use.
type EngineFactory struct {
	mu            sync.RWMutex
	defaultConfig *EngineConfig
}

// NewEngineFactory creates a factory with default configuration and
// XMTPCORE_* environment overrides applied.
func NewEngineFactory() *EngineFactory {
	defaultConfig := &EngineConfig{UseSimulation: false}
	applyEnvironmentOverrides(defaultConfig)

	logrus.WithFields(logrus.Fields{
		"function":       "NewEngineFactory",
		"use_simulation": defaultConfig.UseSimulation,
	}).Info("Created engine factory with configuration")

	return &EngineFactory{defaultConfig: defaultConfig}
}

// applyEnvironmentOverrides updates configuration from environment variables.
func applyEnvironmentOverrides(config *EngineConfig) {
	parseSimulationSetting(config)
}

// parseSimulationSetting reads XMTPCORE_USE_SIMULATION. Unparseable values
// are logged and ignored.
func parseSimulationSetting(config *EngineConfig) {
	useSimStr := os.Getenv("XMTPCORE_USE_SIMULATION")
	if useSimStr == "" {
		return
	}
	useSim, err := strconv.ParseBool(useSimStr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "parseSimulationSetting",
			"env_var":     "XMTPCORE_USE_SIMULATION",
			"value":       useSimStr,
			"error":       err.Error(),
			"using_value": config.UseSimulation,
		}).Warn("Failed to parse XMTPCORE_USE_SIMULATION environment variable, using default")
		return
	}
	config.UseSimulation = useSim
}

// CreateEngine returns the engine for the current configuration. In real
// mode external is the binding to the native engine and must not be nil.
func (f *EngineFactory) CreateEngine(external interfaces.IMessagingEngine) (interfaces.IMessagingEngine, error) {
	f.mu.RLock()
	config := *f.defaultConfig
	f.mu.RUnlock()
	return f.CreateEngineWithConfig(external, &config)
}

// CreateEngineWithConfig is CreateEngine with an explicit configuration. A
// nil config uses the factory default.
func (f *EngineFactory) CreateEngineWithConfig(external interfaces.IMessagingEngine, config *EngineConfig) (interfaces.IMessagingEngine, error) {
	if config == nil {
		f.mu.RLock()
		config = f.defaultConfig
		f.mu.RUnlock()
	}

	if config.UseSimulation {
		logrus.WithFields(logrus.Fields{
			"function": "CreateEngineWithConfig",
			"type":     "simulation",
		}).Info("Creating simulated messaging engine")
		return testing.NewSimulatedEngine(), nil
	}

	if external == nil {
		return nil, fmt.Errorf("an engine implementation is required when simulation is disabled")
	}

	logrus.WithFields(logrus.Fields{
		"function": "CreateEngineWithConfig",
		"type":     fmt.Sprintf("%T", external),
	}).Info("Using external messaging engine")

	return external, nil
}

// CreateSimulationForTesting returns a fresh simulated engine regardless of
// configuration.
func (f *EngineFactory) CreateSimulationForTesting() *testing.SimulatedEngine {
	return testing.NewSimulatedEngine()
}

// SwitchToSimulation makes later CreateEngine calls return a simulation.
func (f *EngineFactory) SwitchToSimulation() {
	f.setSimulation(true)
}

// SwitchToReal makes later CreateEngine calls require an external engine.
func (f *EngineFactory) SwitchToReal() {
	f.setSimulation(false)
}

func (f *EngineFactory) setSimulation(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "setSimulation",
		"previous": f.defaultConfig.UseSimulation,
		"current":  on,
	}).Info("Switching engine factory mode")

	f.defaultConfig.UseSimulation = on
}

// GetCurrentConfig returns a copy of the current default configuration.
func (f *EngineFactory) GetCurrentConfig() *EngineConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	config := *f.defaultConfig
	return &config
}

// IsUsingSimulation reports whether the factory is in simulation mode.
func (f *EngineFactory) IsUsingSimulation() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.defaultConfig.UseSimulation
}

// UpdateConfig replaces the default configuration with a copy of config.
func (f *EngineFactory) UpdateConfig(config *EngineConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *config
	f.defaultConfig = &copied
	return nil
}
