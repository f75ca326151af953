package services

import (
	"strings"
	"unicode"

	"github.com/yukikurage/collab-chat-api/internal/models"
)

var broadcastMentions = map[string]bool{"channel": true, "all": true}

// mentionTokens returns the lower-cased words that follow an '@' in content.
func mentionTokens(content string) []string {
	var tokens []string
	for _, field := range strings.FieldsFunc(content, unicode.IsSpace) {
		at := strings.IndexByte(field, '@')
		for at >= 0 {
			rest := field[at+1:]
			end := strings.IndexFunc(rest, func(r rune) bool {
				return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' || r == '+')
			})
			if end < 0 {
				end = len(rest)
			}
			if token := strings.TrimRight(rest[:end], "."); token != "" {
				tokens = append(tokens, strings.ToLower(token))
			}
			next := strings.IndexByte(rest, '@')
			if next < 0 {
				break
			}
			field = rest
			at = next
		}
	}
	return tokens
}

// DetectMentions returns the ids of the members addressed by content, either
// by display name, by the local part of their email, or through @channel and
// @all.
func DetectMentions(content string, members []models.ChannelMember) map[uint64]bool {
	tokens := mentionTokens(content)
	mentioned := make(map[uint64]bool)
	if len(tokens) == 0 {
		return mentioned
	}

	wanted := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		if broadcastMentions[token] {
			for _, m := range members {
				mentioned[m.UserID] = true
			}
			return mentioned
		}
		wanted[token] = true
	}

	for _, m := range members {
		name := strings.ToLower(m.User.DisplayName)
		local := strings.ToLower(strings.SplitN(m.User.Email, "@", 2)[0])
		if (name != "" && wanted[name]) || (local != "" && wanted[local]) {
			mentioned[m.UserID] = true
		}
	}
	return mentioned
}
