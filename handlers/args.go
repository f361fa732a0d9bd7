package handlers

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidMention is returned when an argument is not a Slack user or
// channel mention.
var ErrInvalidMention = errors.New("invalid mention")

var (
	userMentionRE    = regexp.MustCompile(`^<@([UW][A-Z0-9]+)(?:\|[^>]*)?>$`)
	channelMentionRE = regexp.MustCompile(`^<#([CG][A-Z0-9]+)(?:\|[^>]*)?>$`)
)

// parseUserMention extracts the user ID out of <@U123> or <@U123|name>.
func parseUserMention(s string) (string, error) {
	m := userMentionRE.FindStringSubmatch(s)
	if m == nil {
		return "", ErrInvalidMention
	}
	return m[1], nil
}

// parseChannelMention extracts the channel ID out of <#C123|name> or <#C123>.
func parseChannelMention(s string) (string, error) {
	m := channelMentionRE.FindStringSubmatch(s)
	if m == nil {
		return "", ErrInvalidMention
	}
	return m[1], nil
}

// parseEmoji turns :name: into the name Slack expects for reactions.
func parseEmoji(s string) string {
	if len(s) > 2 && strings.HasPrefix(s, ":") && strings.HasSuffix(s, ":") {
		return s[1 : len(s)-1]
	}
	return s
}

func channelMention(id string) string {
	return "<#" + id + ">"
}

func userMention(id string) string {
	return "<@" + id + ">"
}
