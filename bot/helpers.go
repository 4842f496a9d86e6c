package bot

import (
	"guildsync/lib/sl"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const maxDiscordMessageLen = 2000

func (b *Bot) reply(s *discordgo.Session, channelID, text string) {
	if text == "" {
		b.log.With(slog.String("channel", channelID)).Debug("empty message")
		return
	}
	for _, part := range splitMessage(text, maxDiscordMessageLen) {
		_, err := s.ChannelMessageSend(channelID, part)
		if err != nil {
			b.log.Warn("sending message", slog.String("channel", channelID), sl.Err(err))
			return
		}
	}
}

func (b *Bot) replyEmbed(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) {
	_, err := s.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		b.log.Warn("sending embed", slog.String("channel", channelID), sl.Err(err))
	}
}

// isAdmin reports whether the message author holds administrator permission
// in the channel the message came from.
func (b *Bot) isAdmin(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		b.log.Warn("permission check failed", sl.Guild(m.GuildID), sl.User(m.Author.ID), sl.Err(err))
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}

// memberCount reads the guild size from session state; zero when the state
// has no entry yet.
func (b *Bot) memberCount(s *discordgo.Session, guildID string) int {
	if s.State == nil {
		return 0
	}
	g, err := s.State.Guild(guildID)
	if err != nil {
		return 0
	}
	return g.MemberCount
}

// reportError logs the failure and sends a neutral message to the channel.
// The details reach the ops channel through the log mirror, so they are not
// repeated here.
func (b *Bot) reportError(s *discordgo.Session, channelID, command string, err error) {
	b.log.Error("bot command failed",
		slog.String("command", command),
		slog.String("channel", channelID),
		sl.Err(err),
	)
	b.reply(s, channelID, "Something went wrong. Please try again later.")
}

// parseChannelRef accepts a channel mention like <#123> or a bare ID.
func parseChannelRef(ref string) (string, bool) {
	ref = strings.TrimSuffix(strings.TrimPrefix(ref, "<#"), ">")
	if !isSnowflake(ref) {
		return "", false
	}
	return ref, true
}

// parseRoleRef accepts a role mention like <@&123> or a bare ID.
func parseRoleRef(ref string) (string, bool) {
	ref = strings.TrimSuffix(strings.TrimPrefix(ref, "<@&"), ">")
	if !isSnowflake(ref) {
		return "", false
	}
	return ref, true
}

// parseUserRef accepts a user mention like <@123> or <@!123>, but not a role
// mention and not a bare ID: commands that target another member require an
// explicit mention.
func parseUserRef(ref string) (string, bool) {
	if !strings.HasPrefix(ref, "<@") || strings.HasPrefix(ref, "<@&") {
		return "", false
	}
	ref = strings.TrimSuffix(strings.TrimPrefix(ref, "<@"), ">")
	ref = strings.TrimPrefix(ref, "!")
	if !isSnowflake(ref) {
		return "", false
	}
	return ref, true
}

// mentionedUser resolves a parsed user reference against the message's
// mention list, so the display name comes along without an extra API call.
func mentionedUser(m *discordgo.MessageCreate, userID string) *discordgo.User {
	for _, u := range m.Mentions {
		if u.ID == userID {
			return u
		}
	}
	return nil
}

func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// stripMentions removes the bot's own mention tokens from a message.
func stripMentions(content, botID string) string {
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	return strings.TrimSpace(content)
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Try to split at newline
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

func displayName(user *discordgo.User) string {
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}
