// Package testing provides an in-memory messaging engine for deterministic
// testing of the xmtpcore library.
//
// # Overview
//
// SimulatedEngine implements interfaces.IMessagingEngine entirely in memory.
// Every client authenticated against one engine shares its conversations,
// groups and messages, so a test can create two identities and exchange
// messages between them without a network.
//
// # Usage
//
//	engine := testing.NewSimulatedEngine()
//	alice, _ := engine.CreateRandom(ctx, interfaces.AuthOptions{Environment: "local"})
//	bob, _ := engine.CreateRandom(ctx, interfaces.AuthOptions{Environment: "local"})
//
//	raw, _ := engine.CreateConversation(ctx, alice, bob, "{}")
//
// # Verification Hooks
//
// The engine records every call (Calls), can fail the next call to a named
// operation (FailNext), accepts hand-built or corrupt message records
// (InjectMessage) and delivers synthetic pushes on open streams (Push).
// Timestamps come from a simulated clock that starts at 1700000000000 and
// advances by one millisecond per message or conversation; SetClock moves it.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Stream callbacks are invoked
// after the engine's lock is released, in the order events were produced.
package testing
