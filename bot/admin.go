package bot

import (
	"context"
	"fmt"
	"guildsync/entity"
	"guildsync/internal/announcer"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// cmdConfig shows or mutates the guild's settings. Without arguments it
// prints the current configuration; with arguments it binds a channel kind
// or sets the birthday template.
func (b *Bot) cmdConfig(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !b.isAdmin(s, m) {
		b.reply(s, m.ChannelID, "Admin access required.")
		return
	}
	if b.db == nil {
		b.reply(s, m.ChannelID, "Storage is not configured, settings are unavailable.")
		return
	}

	if len(args) == 0 {
		conf := b.refreshConfig(m.GuildID)
		if conf == nil {
			b.reply(s, m.ChannelID, "This guild has no configuration yet.")
			return
		}
		b.replyEmbed(s, m.ChannelID, configEmbed(conf))
		return
	}

	kind := strings.ToLower(args[0])

	if kind == "birthdaymessage" {
		if len(args) < 2 {
			b.reply(s, m.ChannelID, fmt.Sprintf("Usage: `%sconfig birthdaymessage <template>`\nPlaceholders: {USER_MENTION}, {USER_NAME}", b.prefix))
			return
		}
		err := b.db.SetBirthdayMessage(m.GuildID, strings.Join(args[1:], " "))
		if err != nil {
			b.reportError(s, m.ChannelID, "config birthdaymessage", err)
			return
		}
		b.refreshConfig(m.GuildID)
		b.reply(s, m.ChannelID, "Birthday template updated.")
		return
	}

	if !entity.IsValidChannelKind(kind) {
		b.reply(s, m.ChannelID, fmt.Sprintf(
			"Usage: `%sconfig` to view, `%sconfig <%s> <#channel>`, `%sconfig birthdaymessage <template>`",
			b.prefix, b.prefix, strings.Join(entity.AllChannelKinds(), "|"), b.prefix))
		return
	}
	if len(args) < 2 {
		b.reply(s, m.ChannelID, fmt.Sprintf("Usage: `%sconfig %s <#channel>`", b.prefix, kind))
		return
	}

	channelID, ok := parseChannelRef(args[1])
	if !ok {
		b.reply(s, m.ChannelID, fmt.Sprintf("`%s` does not look like a channel. Mention it, like `#welcome`.", args[1]))
		return
	}

	err := b.db.SetGuildChannel(m.GuildID, kind, channelID)
	if err != nil {
		b.reportError(s, m.ChannelID, "config "+kind, err)
		return
	}
	b.refreshConfig(m.GuildID)
	b.reply(s, m.ChannelID, fmt.Sprintf("The %s channel is now <#%s>.", kind, channelID))
}

// cmdDefaultRole binds the role granted to every new member, or clears it
// with "off".
func (b *Bot) cmdDefaultRole(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !b.isAdmin(s, m) {
		b.reply(s, m.ChannelID, "Admin access required.")
		return
	}
	if b.db == nil {
		b.reply(s, m.ChannelID, "Storage is not configured, settings are unavailable.")
		return
	}
	if len(args) < 1 {
		b.reply(s, m.ChannelID, fmt.Sprintf("Usage: `%sdefaultrole <@role|off>`", b.prefix))
		return
	}

	roleID := ""
	if strings.ToLower(args[0]) != "off" {
		var ok bool
		roleID, ok = parseRoleRef(args[0])
		if !ok {
			b.reply(s, m.ChannelID, fmt.Sprintf("`%s` does not look like a role. Mention it, like `@Member`.", args[0]))
			return
		}
	}

	err := b.db.SetDefaultRole(m.GuildID, roleID)
	if err != nil {
		b.reportError(s, m.ChannelID, "defaultrole", err)
		return
	}
	b.refreshConfig(m.GuildID)
	if roleID == "" {
		b.reply(s, m.ChannelID, "New members will no longer receive a role automatically.")
		return
	}
	b.reply(s, m.ChannelID, fmt.Sprintf("New members will receive <@&%s>.", roleID))
}

func (b *Bot) cmdInviteStats(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !b.isAdmin(s, m) {
		b.reply(s, m.ChannelID, "Admin access required.")
		return
	}

	stats := b.snapshotStats(m.GuildID)
	if len(stats) == 0 {
		b.reply(s, m.ChannelID, "No invite activity tracked for this guild.")
		return
	}
	b.replyEmbed(s, m.ChannelID, inviteStatsEmbed(stats))
}

// cmdTestWelcome previews the welcome embed in the current channel.
func (b *Bot) cmdTestWelcome(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !b.isAdmin(s, m) {
		b.reply(s, m.ChannelID, "Admin access required.")
		return
	}
	b.replyEmbed(s, m.ChannelID, welcomeEmbed(m.Author, entity.Attribution{}, b.memberCount(s, m.GuildID)))
}

// cmdTestBirthday previews a member's birthday announcement, the invoker's
// own when nobody is mentioned.
func (b *Bot) cmdTestBirthday(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if !b.isAdmin(s, m) {
		b.reply(s, m.ChannelID, "Admin access required.")
		return
	}
	if b.db == nil {
		b.reply(s, m.ChannelID, "Storage is not configured, birthdays are unavailable.")
		return
	}

	targetID := m.Author.ID
	if len(args) > 0 {
		id, ok := parseUserRef(args[0])
		if !ok {
			b.reply(s, m.ChannelID, fmt.Sprintf("Usage: `%stestbirthday [@user]`", b.prefix))
			return
		}
		targetID = id
	}

	birthday, err := b.db.FindBirthday(m.GuildID, targetID)
	if err != nil {
		b.reportError(s, m.ChannelID, "testbirthday", err)
		return
	}
	if birthday == nil {
		b.reply(s, m.ChannelID, fmt.Sprintf("No birthday stored for that member. Save one with `%sbirthday MM-DD` first.", b.prefix))
		return
	}

	message := announcer.ResolveMessage(*birthday, b.findConfig(m.GuildID))
	b.replyEmbed(s, m.ChannelID, birthdayEmbed(*birthday, message))
}

// cmdTestEvent fetches and previews today's event in the current channel.
func (b *Bot) cmdTestEvent(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !b.isAdmin(s, m) {
		b.reply(s, m.ChannelID, "Admin access required.")
		return
	}
	if b.events == nil {
		b.reply(s, m.ChannelID, "Daily events are not enabled.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	event := b.events.Today(ctx, time.Now())
	b.replyEmbed(s, m.ChannelID, dailyEventEmbed(event))
}
