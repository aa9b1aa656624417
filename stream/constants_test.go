package stream

import "github.com/opd-ai/xmtpcore/interfaces"

type interfacesKind = interfaces.StreamKind

const (
	kindConversations    = interfaces.StreamConversations
	kindGroups           = interfaces.StreamGroups
	kindAll              = interfaces.StreamAll
	kindMessages         = interfaces.StreamMessages
	kindGroupMessages    = interfaces.StreamGroupMessages
	kindAllMessages      = interfaces.StreamAllMessages
	kindAllGroupMessages = interfaces.StreamAllGroupMessages
)

const testGreeting = "gm"
