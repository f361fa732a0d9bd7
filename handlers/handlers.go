package handlers

import (
	"context"

	"github.com/gopheracademy/autoreact/bot"
)

// ProcessLinear calls handlers in order.
func ProcessLinear(hs ...bot.Handler) bot.Handler {
	return bot.HandlerFunc(func(ctx context.Context, m bot.Message, r bot.Responder) {
		for _, h := range hs {
			h.Handle(ctx, m, r)
		}
	})
}

// BotVersion responds to messages with the bot's version when Message.TrimmedText
// matches prompt.
func BotVersion(prompt, version string) bot.Handler {
	msg := "My version is: " + version
	return bot.HandlerFunc(func(ctx context.Context, m bot.Message, r bot.Responder) {
		if m.TrimmedText != prompt {
			return
		}
		r.Respond(ctx, msg)
	})
}
