package bot

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/trace"
	"github.com/nlopes/slack"
	"golang.org/x/time/rate"

	"github.com/gopheracademy/autoreact/rules"
)

type (
	// Logger function
	Logger func(message string, args ...interface{})

	// SlackAPI is the part of *slack.Client the bot talks to.
	SlackAPI interface {
		AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
		AddReactionContext(ctx context.Context, name string, item slack.ItemRef) error
		PostMessageContext(ctx context.Context, channel, text string, params slack.PostMessageParameters) (string, string, error)
	}

	// RuleSource looks up the auto-reaction rule of a user.
	RuleSource interface {
		Get(user string) *rules.Rule
	}

	// Message is an incoming message as seen by a Handler.
	Message struct {
		Event *slack.MessageEvent
		// TrimmedText is Event.Text without surrounding whitespace.
		TrimmedText string
	}

	// Responder acts on the message being handled.
	Responder interface {
		// Respond posts msg to the message's channel (or thread). Failures
		// are logged.
		Respond(ctx context.Context, msg string)
		// React adds reaction to the message.
		React(ctx context.Context, reaction string) error
	}

	// Handler processes a message.
	Handler interface {
		Handle(context.Context, Message, Responder)
	}

	// HandlerFunc adapts a function to a Handler.
	HandlerFunc func(context.Context, Message, Responder)

	// Bot structure
	Bot struct {
		id          string
		devMode     bool
		slackBotAPI SlackAPI
		rules       RuleSource
		commands    Handler
		limiter     *rate.Limiter
		logf        Logger
		traceClient *trace.Client
	}
)

// Handle calls f(ctx, m, r).
func (f HandlerFunc) Handle(ctx context.Context, m Message, r Responder) {
	f(ctx, m, r)
}

// ErrInvalidAuth is returned by Run when Slack rejects the bot token.
var ErrInvalidAuth = errors.New("slack rejected the bot token")

// subtypes of user authored messages that are eligible for reactions
var reactableSubTypes = map[string]struct{}{
	"":                 {},
	"file_share":       {},
	"me_message":       {},
	"thread_broadcast": {},
}

// NewBot will create a new Slack bot.
//
// commands may be nil. traceClient may be nil, in which case no spans are
// recorded. limiter may be nil to leave reactions unthrottled.
func NewBot(slackBotAPI SlackAPI, traceClient *trace.Client, ruleSource RuleSource, commands Handler, limiter *rate.Limiter, devMode bool, log Logger) *Bot {
	return &Bot{
		devMode:     devMode,
		slackBotAPI: slackBotAPI,
		rules:       ruleSource,
		commands:    commands,
		limiter:     limiter,
		logf:        log,
		traceClient: traceClient,
	}
}

// Init must be called before anything else in order to initialize the bot
func (b *Bot) Init(ctx context.Context) error {
	b.logf("Determining bot user ID\n")
	resp, err := b.slackBotAPI.AuthTestContext(ctx)
	if err != nil {
		return err
	}

	b.id = resp.UserID
	b.logf("Initialized %s with ID: %s\n", resp.User, b.id)
	return nil
}

// ID returns the bot's own Slack user ID.
func (b *Bot) ID() string {
	return b.id
}

// Run handles events one at a time until ctx is done or events is closed.
func (b *Bot) Run(ctx context.Context, events <-chan slack.RTMEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-events:
			if !ok {
				return nil
			}

			switch event := msg.Data.(type) {
			case *slack.ConnectedEvent:
				if b.id == "" && event.Info != nil && event.Info.User != nil {
					b.id = event.Info.User.ID
				}
				b.logf("connected to slack (connection %d)\n", event.ConnectionCount)
			case *slack.MessageEvent:
				b.HandleMessage(event)
			case *slack.RTMError:
				b.logf("rtm error: %s\n", event.Error())
			case *slack.InvalidAuthEvent:
				return ErrInvalidAuth
			default:
			}
		}
	}
}

// HandleMessage runs the command handler on the message and then reacts to
// it when its author has a matching rule.
func (b *Bot) HandleMessage(event *slack.MessageEvent) {
	if event.BotID != "" || event.User == "" || event.SubType == "bot_message" {
		return
	}
	if event.User == b.id {
		return
	}
	if _, ok := reactableSubTypes[event.SubType]; !ok {
		return
	}

	ctx, finish := b.span("b.HandleMessage", event)
	defer finish()

	if b.devMode {
		b.logf("got message from %s in %s: %q\n", event.User, event.Channel, event.Text)
	}

	r := &responder{bot: b, event: event}
	if b.commands != nil {
		b.commands.Handle(ctx, Message{
			Event:       event,
			TrimmedText: strings.TrimSpace(event.Text),
		}, r)
	}

	emoji, ok := rules.ShouldReact(b.rules.Get(event.User), event.Channel)
	if !ok {
		return
	}

	err := r.React(ctx, emoji)
	switch {
	case err == nil, IsAlreadyReacted(err):
	case IsPermissionError(err):
		b.logf("I don't have permission to add reactions in channel %s: %v\n", event.Channel, err)
	default:
		b.logf("failed to add reaction %q to %s/%s: %v\n", emoji, event.Channel, event.Timestamp, err)
	}
}

func (b *Bot) span(name string, event *slack.MessageEvent) (context.Context, func()) {
	if b.traceClient == nil {
		return context.Background(), func() {}
	}

	span := b.traceClient.NewSpan(name)
	span.SetLabel("channel", event.Channel)
	return trace.NewContext(context.Background(), span), func() { span.Finish() }
}
