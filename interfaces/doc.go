// Package interfaces defines the boundary between xmtpcore and the protocol
// engine that owns keys, MLS state and the network connection.
//
// The engine speaks in strings: conversation, message and consent records
// cross the boundary as JSON, and opaque handles such as key bundles and
// prepared messages are passed back unchanged. Everything above this
// package parses those records into typed values.
//
// # Core Interfaces
//
// [IMessagingEngine] is the full engine surface. It is composed of smaller
// interfaces so that each package only depends on what it calls:
//
//   - [IIdentityEngine]: create, restore and delete client identities
//   - [IConversationEngine]: list and create conversations and groups, manage members
//   - [IMessageEngine]: send, prepare, list and decrypt messages
//   - [IConsentEngine]: read and write the consent list
//   - [IStreamEngine]: open and close push streams
//
// A stream is identified by a [StreamKey]: the client address, the
// [StreamKind] and, for per-topic and per-group streams, a scope id. The
// engine delivers records for an open stream through the [PushFunc] it was
// opened with until CloseStream returns.
//
// # Implementation Selection
//
// The factory package picks the engine:
//   - UseSimulation=true: the in-process engine from the testing package
//   - UseSimulation=false: the engine supplied by the host application
//
// # Error Handling
//
// Engine failures are wrapped with [WrapEngineError] so callers can see the
// operation and client address while the engine's message is kept verbatim:
//
//	raw, err := engine.ListAll(ctx, address)
//	if err != nil {
//	    return interfaces.WrapEngineError("ListAll", address, err)
//	}
//
// # Thread Safety
//
// Engine implementations must be safe for concurrent use. A PushFunc may be
// called from any goroutine.
package interfaces
