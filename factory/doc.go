// Package factory creates the messaging engine a client registry talks to.
//
// The factory switches between the in-memory simulated engine from the
// testing package and an externally supplied binding to the native engine,
// without changing consuming code.
//
// # Configuration
//
// The factory reads one environment variable:
//   - XMTPCORE_USE_SIMULATION: "true" or "false" to enable simulation mode
//
// # Usage
//
//	f := factory.NewEngineFactory()
//	f.SwitchToSimulation()
//
//	engine, err := f.CreateEngine(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// In real mode the native binding is passed in:
//
//	engine, err := f.CreateEngine(nativeEngine)
package factory
