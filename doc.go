// Package xmtpcore is a client-side bridge to an XMTP messaging engine.
//
// It exposes one API over pairwise conversations and multi-party groups,
// encodes and decodes application content through a pluggable codec
// registry, and republishes the engine's push streams as typed events.
// Transport, key management, MLS and database encryption belong to the
// engine, which is reached through the interfaces.IMessagingEngine
// contract.
//
// # Getting Started
//
//	options := xmtpcore.NewOptions()
//	options.Environment = "dev"
//	options.UseSimulation = true
//
//	registry, err := xmtpcore.New(options, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer registry.Close(ctx)
//
//	alice, err := registry.CreateRandom(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	alice.Subscribe(stream.EventConversationMessage, func(e stream.Event) {
//	    fmt.Printf("%s: %v\n", e.Message.SenderAddress, e.Message.Content)
//	})
//
//	conv, err := alice.CreateConversation(ctx, peerAddress, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = alice.SubscribeToMessages(ctx, conv.Topic())
//	_, err = alice.SendText(ctx, conv.Topic(), "gm")
//
// # Core Types
//
//   - [Registry]: process-wide state shared by every client (codecs, streams,
//     consent caches, outbox)
//   - [Client]: the API for one authenticated address. [Client.Subscribe]
//     only delivers that client's events; [Registry.Events] sees them all
//   - [Options]: configuration, loadable from YAML with [LoadOptions]
//
// # Content
//
// Messages are sent as any value with a content type id. The codec for the
// id is resolved from the registry shared by all clients; custom codecs are
// added with [Registry.RegisterCodec]. Received content whose type has no
// codec is surfaced with its fallback text instead of failing.
//
// # Configuration
//
// [LoadOptions] reads a YAML file and applies these environment overrides:
//   - XMTPCORE_ENV: local, dev or production
//   - XMTPCORE_APP_VERSION
//   - XMTPCORE_DB_PATH
//   - XMTPCORE_COMPRESSION: none, deflate or gzip
//   - XMTPCORE_OUTBOX_PATH: enables the persistent outbox
//   - XMTPCORE_LOG_LEVEL: a logrus level name
//
// # Offline sending
//
// With an outbox configured, [Client.PrepareMessage] queues the prepared
// message in SQLite and [Client.FlushOutbox] publishes the queue later.
package xmtpcore
