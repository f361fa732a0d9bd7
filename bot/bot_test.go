package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/nlopes/slack"

	"github.com/gopheracademy/autoreact/rules"
)

type reaction struct {
	name    string
	channel string
	ts      string
}

type fakeSlack struct {
	reactErr  error
	reactions []reaction
	posts     []string
}

func (f *fakeSlack) AuthTestContext(context.Context) (*slack.AuthTestResponse, error) {
	return &slack.AuthTestResponse{User: "autoreact", UserID: "UBOT"}, nil
}

func (f *fakeSlack) AddReactionContext(_ context.Context, name string, item slack.ItemRef) error {
	if f.reactErr != nil {
		return f.reactErr
	}
	f.reactions = append(f.reactions, reaction{name: name, channel: item.Channel, ts: item.Timestamp})
	return nil
}

func (f *fakeSlack) PostMessageContext(_ context.Context, channel, text string, _ slack.PostMessageParameters) (string, string, error) {
	f.posts = append(f.posts, text)
	return channel, "1", nil
}

type staticRules map[string]rules.Rule

func (s staticRules) Get(user string) *rules.Rule {
	r, ok := s[user]
	if !ok {
		return nil
	}
	return &r
}

func testMsg(user, channel, text string) *slack.MessageEvent {
	return &slack.MessageEvent{
		Msg: slack.Msg{
			User:      user,
			Channel:   channel,
			Text:      text,
			Timestamp: "1000.0001",
		},
	}
}

func newTestBot(t *testing.T, api *fakeSlack, rs RuleSource, commands Handler) *Bot {
	t.Helper()
	b := NewBot(api, nil, rs, commands, nil, false, t.Logf)
	if err := b.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return b
}

func TestHandleMessage(t *testing.T) {
	rs := staticRules{
		"U1": {Emoji: "+1"},
		"U2": {Emoji: "fire", Channels: []string{"C1"}},
	}

	t.Run("reacts in any channel without scope", func(t *testing.T) {
		api := &fakeSlack{}
		b := newTestBot(t, api, rs, nil)
		b.HandleMessage(testMsg("U1", "C7", "hello"))

		expected := []reaction{{name: "+1", channel: "C7", ts: "1000.0001"}}
		if len(api.reactions) != 1 || api.reactions[0] != expected[0] {
			t.Errorf("expected: %v\nactual:%v", expected, api.reactions)
		}
	})

	t.Run("respects channel scope", func(t *testing.T) {
		api := &fakeSlack{}
		b := newTestBot(t, api, rs, nil)
		b.HandleMessage(testMsg("U2", "C2", "hello"))
		if len(api.reactions) != 0 {
			t.Errorf("expected no reaction in C2\nactual:%v", api.reactions)
		}

		b.HandleMessage(testMsg("U2", "C1", "hello"))
		if len(api.reactions) != 1 || api.reactions[0].name != "fire" {
			t.Errorf("expected fire in C1\nactual:%v", api.reactions)
		}
	})

	t.Run("ignores unconfigured users", func(t *testing.T) {
		api := &fakeSlack{}
		b := newTestBot(t, api, rs, nil)
		b.HandleMessage(testMsg("U9", "C1", "hello"))
		if len(api.reactions) != 0 {
			t.Errorf("expected no reaction\nactual:%v", api.reactions)
		}
	})

	t.Run("ignores bots and itself", func(t *testing.T) {
		api := &fakeSlack{}
		self := staticRules{"UBOT": {Emoji: "+1"}, "U1": {Emoji: "+1"}}
		b := newTestBot(t, api, self, nil)

		fromBot := testMsg("U1", "C1", "beep")
		fromBot.BotID = "B1"
		botMessage := testMsg("U1", "C1", "beep")
		botMessage.SubType = "bot_message"
		edited := testMsg("U1", "C1", "edit")
		edited.SubType = "message_changed"

		for _, ev := range []*slack.MessageEvent{
			testMsg("UBOT", "C1", "me"),
			fromBot,
			botMessage,
			edited,
			testMsg("", "C1", "nobody"),
		} {
			b.HandleMessage(ev)
		}
		if len(api.reactions) != 0 {
			t.Errorf("expected no reaction\nactual:%v", api.reactions)
		}
	})

	t.Run("runs commands before reacting", func(t *testing.T) {
		api := &fakeSlack{}
		var seen []string
		reactionsDuringCommand := -1
		commands := HandlerFunc(func(ctx context.Context, m Message, r Responder) {
			seen = append(seen, m.TrimmedText)
			reactionsDuringCommand = len(api.reactions)
			r.Respond(ctx, "done")
		})
		b := newTestBot(t, api, rs, commands)
		b.HandleMessage(testMsg("U1", "C1", "  !autoreact  \n"))

		if len(seen) != 1 || seen[0] != "!autoreact" {
			t.Errorf("expected: %q\nactual:%q", "!autoreact", seen)
		}
		if reactionsDuringCommand != 0 || len(api.reactions) != 1 {
			t.Errorf("expected reaction after command, got %d during and %d after", reactionsDuringCommand, len(api.reactions))
		}
		if len(api.posts) != 1 || api.posts[0] != "done" {
			t.Errorf("expected reply done\nactual:%v", api.posts)
		}
	})

	t.Run("reaction failures are swallowed", func(t *testing.T) {
		for _, err := range []error{
			errors.New("not_in_channel"),
			errors.New("already_reacted"),
			errors.New("invalid_name"),
			errors.New("boom"),
		} {
			api := &fakeSlack{reactErr: err}
			var logged int
			b := NewBot(api, nil, rs, nil, nil, false, func(string, ...interface{}) { logged++ })
			b.HandleMessage(testMsg("U1", "C1", "hello"))
			b.HandleMessage(testMsg("U1", "C1", "hello again"))
			if IsAlreadyReacted(err) && logged != 0 {
				t.Errorf("expected already_reacted to be silent, logged %d times", logged)
			}
			if !IsAlreadyReacted(err) && logged != 2 {
				t.Errorf("%v: expected 2 log lines\nactual:%d", err, logged)
			}
		}
	})

	t.Run("dev mode only logs", func(t *testing.T) {
		api := &fakeSlack{}
		b := NewBot(api, nil, rs, nil, nil, true, t.Logf)
		b.HandleMessage(testMsg("U1", "C1", "hello"))
		if len(api.reactions) != 0 {
			t.Errorf("expected no api calls in dev mode\nactual:%v", api.reactions)
		}
	})
}

func TestRun(t *testing.T) {
	t.Run("processes events in order until closed", func(t *testing.T) {
		api := &fakeSlack{}
		b := NewBot(api, nil, staticRules{"U1": {Emoji: "+1"}}, nil, nil, false, t.Logf)

		events := make(chan slack.RTMEvent, 4)
		events <- slack.RTMEvent{Type: "connected", Data: &slack.ConnectedEvent{
			ConnectionCount: 1,
			Info:            &slack.Info{User: &slack.UserDetails{ID: "UBOT"}},
		}}
		events <- slack.RTMEvent{Type: "message", Data: testMsg("UBOT", "C1", "self")}
		events <- slack.RTMEvent{Type: "message", Data: testMsg("U1", "C1", "hi")}
		close(events)

		if err := b.Run(context.Background(), events); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.ID() != "UBOT" {
			t.Errorf("expected: %q\nactual:%q", "UBOT", b.ID())
		}
		if len(api.reactions) != 1 {
			t.Errorf("expected 1 reaction\nactual:%v", api.reactions)
		}
	})

	t.Run("stops on invalid auth", func(t *testing.T) {
		b := NewBot(&fakeSlack{}, nil, staticRules{}, nil, nil, false, t.Logf)
		events := make(chan slack.RTMEvent, 1)
		events <- slack.RTMEvent{Type: "invalid_auth", Data: &slack.InvalidAuthEvent{}}

		if err := b.Run(context.Background(), events); err != ErrInvalidAuth {
			t.Errorf("expected: %v\nactual:%v", ErrInvalidAuth, err)
		}
	})

	t.Run("stops when context is done", func(t *testing.T) {
		b := NewBot(&fakeSlack{}, nil, staticRules{}, nil, nil, false, t.Logf)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := b.Run(ctx, make(chan slack.RTMEvent)); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
