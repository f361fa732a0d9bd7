// Package rules holds the per-user auto-reaction rules and decides when a
// rule applies to an incoming message.
package rules

// Rule is the reaction configured for one user.
//
// An empty Channels list means the rule applies in every channel.
type Rule struct {
	Emoji    string   `json:"emoji"`
	Channels []string `json:"channels"`
}

// Allows reports whether the rule's channel scope covers channel.
func (r Rule) Allows(channel string) bool {
	if len(r.Channels) == 0 {
		return true
	}
	for _, c := range r.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

func (r Rule) clone() Rule {
	out := Rule{Emoji: r.Emoji}
	if len(r.Channels) > 0 {
		out.Channels = append([]string(nil), r.Channels...)
	}
	return out
}

// ShouldReact returns the emoji to react with when a message is posted in
// channel by a user whose rule is rule. A nil rule never reacts.
func ShouldReact(rule *Rule, channel string) (string, bool) {
	if rule == nil || rule.Emoji == "" {
		return "", false
	}
	if !rule.Allows(channel) {
		return "", false
	}
	return rule.Emoji, true
}
