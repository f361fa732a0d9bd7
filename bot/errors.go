package bot

// Slack Web API error codes returned by reactions.add.
var (
	permissionErrors = map[string]struct{}{
		"not_in_channel":         {},
		"channel_not_found":      {},
		"is_archived":            {},
		"missing_scope":          {},
		"no_permission":          {},
		"not_allowed_token_type": {},
		"restricted_action":      {},
		"thread_locked":          {},
	}

	invalidEmojiErrors = map[string]struct{}{
		"invalid_name":  {},
		"bad_emoji":     {},
		"invalid_emoji": {},
	}
)

// IsPermissionError reports whether Slack refused a reaction because the bot
// may not react in that channel.
func IsPermissionError(err error) bool {
	return hasCode(err, permissionErrors)
}

// IsInvalidEmoji reports whether Slack refused a reaction because it does
// not know the emoji.
func IsInvalidEmoji(err error) bool {
	return hasCode(err, invalidEmojiErrors)
}

// IsAlreadyReacted reports whether the reaction was already present.
func IsAlreadyReacted(err error) bool {
	return err != nil && err.Error() == "already_reacted"
}

// nlopes/slack reports API failures as plain errors carrying the error code.
func hasCode(err error, codes map[string]struct{}) bool {
	if err == nil {
		return false
	}
	_, ok := codes[err.Error()]
	return ok
}
