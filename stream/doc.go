// Package stream opens engine push streams and republishes their contents
// as typed events on one [Bus].
//
// A stream is identified by an interfaces.StreamKey: the owning client
// address, the kind of stream and, for per-topic and per-group streams, a
// scope id. [Manager.Subscribe] is idempotent per key. After
// [Manager.Unsubscribe] returns, no further event for that key reaches the
// bus.
//
// Pushes are decoded before they are published, so handlers receive a
// *conversation.Container or a *messaging.DecodedMessage and never raw
// records. A push that cannot be decoded is published as [EventError].
//
//	sub := manager.Bus().Subscribe(stream.EventConversationMessage, func(e stream.Event) {
//	    fmt.Println(e.Message.SenderAddress, e.Message.Content)
//	})
//	defer sub.Unsubscribe()
//
//	err := manager.Subscribe(ctx, interfaces.StreamKey{
//	    ClientAddress: address,
//	    Kind:          interfaces.StreamMessages,
//	    ScopeID:       topic,
//	}, interfaces.StreamOptions{})
package stream
