// Package ui declares the presentation hooks a bot hands to the routers.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider answers updates no route claims: free text outside a
// conversation, unexpected files and buttons whose payload no longer
// matches a registered pattern.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
