package handlers

import (
	"context"
	"strings"

	"github.com/nlopes/slack"

	"github.com/gopheracademy/autoreact/bot"
)

// RuleStore is the part of *rules.Store the commands mutate.
type RuleStore interface {
	Set(ctx context.Context, user, emoji string, channels []string) error
	Remove(ctx context.Context, user string) (bool, error)
	Clear(ctx context.Context) error
}

// UserResolver checks that a user ID exists. *slack.Client implements it.
type UserResolver interface {
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
}

type autoReact struct {
	prefix string
	store  RuleStore
	users  UserResolver
	logf   bot.Logger
}

// AutoReact handles the "<prefix>autoreact" command group:
//
//	autoreact set @user :emoji: [#channel ...]
//	autoreact remove @user
//	autoreact removeall
//
// Anything else after "autoreact" gets the usage text. users may be nil, in
// which case user mentions are trusted as is.
func AutoReact(prefix string, store RuleStore, users UserResolver, logf bot.Logger) bot.Handler {
	return autoReact{
		prefix: prefix,
		store:  store,
		users:  users,
		logf:   logf,
	}
}

func (a autoReact) Handle(ctx context.Context, m bot.Message, r bot.Responder) {
	fields := strings.Fields(m.TrimmedText)
	if len(fields) == 0 || fields[0] != a.prefix+"autoreact" {
		return
	}

	if len(fields) == 1 {
		r.Respond(ctx, a.usage())
		return
	}

	args := fields[2:]
	switch fields[1] {
	case "set":
		a.set(ctx, r, args)
	case "remove":
		a.remove(ctx, r, args)
	case "removeall":
		a.removeAll(ctx, r)
	default:
		r.Respond(ctx, a.usage())
	}
}

func (a autoReact) usage() string {
	return "*Invalid command.* Please use `" + a.prefix + "autoreact set`, `" +
		a.prefix + "autoreact remove`, or `" + a.prefix + "autoreact removeall`.\n" +
		"- `" + a.prefix + "autoreact set @user :emoji: [#channel ...]` -> react to a user's messages, optionally only in some channels\n" +
		"- `" + a.prefix + "autoreact remove @user` -> stop reacting to a user\n" +
		"- `" + a.prefix + "autoreact removeall` -> remove every auto-react configuration"
}

func (a autoReact) set(ctx context.Context, r bot.Responder, args []string) {
	if len(args) < 2 {
		r.Respond(ctx, "Usage: `"+a.prefix+"autoreact set @user :emoji: [#channel ...]`")
		return
	}

	user, ok := a.resolveUser(ctx, r, args[0])
	if !ok {
		return
	}

	emoji := parseEmoji(args[1])
	if emoji == "" {
		r.Respond(ctx, "❌ That doesn't seem to be a valid emoji that I can use.")
		return
	}

	var channels []string
	for _, arg := range args[2:] {
		channel, err := parseChannelMention(arg)
		if err != nil {
			r.Respond(ctx, "❌ I couldn't find the channel "+arg+".")
			return
		}
		channels = append(channels, channel)
	}

	// probe the emoji on the command message itself
	err := r.React(ctx, emoji)
	switch {
	case err == nil, bot.IsAlreadyReacted(err):
	case bot.IsPermissionError(err):
		a.logf("probing emoji %q: %v\n", emoji, err)
		r.Respond(ctx, "❌ I don't have permission to add reactions here, so I can't check that emoji.")
		return
	default:
		a.logf("probing emoji %q: %v\n", emoji, err)
		r.Respond(ctx, "❌ That doesn't seem to be a valid emoji that I can use.")
		return
	}

	if err := a.store.Set(ctx, user, emoji, channels); err != nil {
		a.logf("%s\n", err)
		r.Respond(ctx, "⚠️ I couldn't save that configuration, please try again later.")
		return
	}

	if len(channels) == 0 {
		r.Respond(ctx, "✅ I will now auto-react with :"+emoji+": to all messages from "+userMention(user)+".")
		return
	}

	mentions := make([]string, 0, len(channels))
	for _, c := range channels {
		mentions = append(mentions, channelMention(c))
	}
	r.Respond(ctx, "✅ I will now auto-react with :"+emoji+": to messages from "+userMention(user)+" in "+strings.Join(mentions, ", ")+".")
}

func (a autoReact) remove(ctx context.Context, r bot.Responder, args []string) {
	if len(args) < 1 {
		r.Respond(ctx, "Usage: `"+a.prefix+"autoreact remove @user`")
		return
	}

	user, ok := a.resolveUser(ctx, r, args[0])
	if !ok {
		return
	}

	removed, err := a.store.Remove(ctx, user)
	if err != nil {
		a.logf("%s\n", err)
		r.Respond(ctx, "⚠️ I couldn't save that configuration, please try again later.")
		return
	}
	if !removed {
		r.Respond(ctx, "🤔 I am not currently auto-reacting to messages from "+userMention(user)+".")
		return
	}
	r.Respond(ctx, "🗑️ I will no longer auto-react to messages from "+userMention(user)+".")
}

func (a autoReact) removeAll(ctx context.Context, r bot.Responder) {
	if err := a.store.Clear(ctx); err != nil {
		a.logf("%s\n", err)
		r.Respond(ctx, "⚠️ I couldn't save that configuration, please try again later.")
		return
	}
	r.Respond(ctx, "🗑️ All auto-react configurations have been removed.")
}

func (a autoReact) resolveUser(ctx context.Context, r bot.Responder, arg string) (string, bool) {
	user, err := parseUserMention(arg)
	if err != nil {
		r.Respond(ctx, "❌ I couldn't find the user "+arg+".")
		return "", false
	}
	if a.users == nil {
		return user, true
	}

	if _, err := a.users.GetUserInfoContext(ctx, user); err != nil {
		a.logf("looking up user %s: %v\n", user, err)
		r.Respond(ctx, "❌ I couldn't find the user "+arg+".")
		return "", false
	}
	return user, true
}
