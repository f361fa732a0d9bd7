package bot

import (
	"context"

	"github.com/nlopes/slack"
)

type responder struct {
	bot   *Bot
	event *slack.MessageEvent
}

func (r *responder) Respond(ctx context.Context, msg string) {
	if r.bot.devMode {
		r.bot.logf("should reply to message %s with %s\n", r.event.Text, msg)
		return
	}

	params := slack.PostMessageParameters{AsUser: true, ThreadTimestamp: r.event.ThreadTimestamp}
	_, _, err := r.bot.slackBotAPI.PostMessageContext(ctx, r.event.Channel, msg, params)
	if err != nil {
		r.bot.logf("%s\n", err)
	}
}

func (r *responder) React(ctx context.Context, reaction string) error {
	if r.bot.devMode {
		r.bot.logf("should react to message %s with %s\n", r.event.Text, reaction)
		return nil
	}

	if r.bot.limiter != nil {
		if err := r.bot.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	item := slack.ItemRef{
		Channel:   r.event.Channel,
		Timestamp: r.event.Timestamp,
	}
	return r.bot.slackBotAPI.AddReactionContext(ctx, reaction, item)
}
