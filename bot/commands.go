package bot

import (
	"context"
	"fmt"
	"guildsync/entity"
	"guildsync/lib/clock"
	"guildsync/lib/sl"
	"guildsync/tracker"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const chatTimeout = 60 * time.Second

func (b *Bot) cmdBirthday(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if b.db == nil {
		b.reply(s, m.ChannelID, "Storage is not configured, birthdays are unavailable.")
		return
	}
	if len(args) < 1 {
		b.reply(s, m.ChannelID, fmt.Sprintf("Usage: `%sbirthday MM-DD` for yourself, or `%sbirthday @user MM-DD [custom message]` (admin).\nExample: `%sbirthday 03-14 Happy cake day {USER_MENTION}!`", b.prefix, b.prefix, b.prefix))
		return
	}

	target := m.Author
	if id, ok := parseUserRef(args[0]); ok {
		if !b.isAdmin(s, m) {
			b.reply(s, m.ChannelID, "Admin access required to set someone else's birthday.")
			return
		}
		target = mentionedUser(m, id)
		if target == nil {
			b.reply(s, m.ChannelID, "I could not resolve that member, mention them directly.")
			return
		}
		args = args[1:]
		if len(args) < 1 {
			b.reply(s, m.ChannelID, fmt.Sprintf("Usage: `%sbirthday @user MM-DD [custom message]`", b.prefix))
			return
		}
	}

	monthDay, err := clock.ParseMonthDay(args[0])
	if err != nil {
		b.reply(s, m.ChannelID, fmt.Sprintf("`%s` is not a valid date, expected MM-DD.", args[0]))
		return
	}

	existing, err := b.db.FindBirthday(m.GuildID, target.ID)
	if err != nil {
		b.reportError(s, m.ChannelID, "birthday", err)
		return
	}
	if existing != nil {
		b.reply(s, m.ChannelID, fmt.Sprintf("A birthday is already stored for %s (%s). Remove it first with `%sdeletebirthday`.", displayName(target), existing.MonthDay, b.prefix))
		return
	}

	birthday := &entity.Birthday{
		GuildID:   m.GuildID,
		UserID:    target.ID,
		UserName:  target.Username,
		MonthDay:  monthDay,
		Message:   strings.Join(args[1:], " "),
		CreatedAt: time.Now().UTC(),
	}
	err = b.db.UpsertBirthday(birthday)
	if err != nil {
		b.reportError(s, m.ChannelID, "birthday", err)
		return
	}
	b.reply(s, m.ChannelID, fmt.Sprintf("Birthday saved for %s. See you at midnight!", monthDay))
}

func (b *Bot) cmdDeleteBirthday(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if b.db == nil {
		b.reply(s, m.ChannelID, "Storage is not configured, birthdays are unavailable.")
		return
	}

	targetID := m.Author.ID
	if len(args) > 0 {
		id, ok := parseUserRef(args[0])
		if !ok {
			b.reply(s, m.ChannelID, fmt.Sprintf("Usage: `%sdeletebirthday [@user]`", b.prefix))
			return
		}
		if !b.isAdmin(s, m) {
			b.reply(s, m.ChannelID, "Admin access required to remove someone else's birthday.")
			return
		}
		targetID = id
	}

	deleted, err := b.db.DeleteBirthday(m.GuildID, targetID)
	if err != nil {
		b.reportError(s, m.ChannelID, "deletebirthday", err)
		return
	}
	if !deleted {
		if targetID == m.Author.ID {
			b.reply(s, m.ChannelID, "You have no birthday stored.")
		} else {
			b.reply(s, m.ChannelID, "That member has no birthday stored.")
		}
		return
	}
	b.reply(s, m.ChannelID, "Birthday removed.")
}

func (b *Bot) cmdBirthdays(s *discordgo.Session, m *discordgo.MessageCreate) {
	if b.db == nil {
		b.reply(s, m.ChannelID, "Storage is not configured, birthdays are unavailable.")
		return
	}

	birthdays, err := b.db.GuildBirthdays(m.GuildID)
	if err != nil {
		b.reportError(s, m.ChannelID, "birthdays", err)
		return
	}
	if len(birthdays) == 0 {
		b.reply(s, m.ChannelID, fmt.Sprintf("No birthdays saved yet. Add yours with `%sbirthday MM-DD`.", b.prefix))
		return
	}
	b.replyEmbed(s, m.ChannelID, birthdayListEmbed(birthdays))
}

// cmdInvites refreshes the cache from the live platform list so the numbers
// shown are current, then renders the merged snapshot.
func (b *Bot) cmdInvites(s *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), b.joinTimeout)
	defer cancel()
	snapshot, err := b.tracker.Refresh(ctx, m.GuildID)
	if err != nil {
		b.reportError(s, m.ChannelID, "invites", err)
		return
	}
	if len(snapshot) == 0 {
		b.reply(s, m.ChannelID, "No active invites tracked for this guild.")
		return
	}
	b.replyEmbed(s, m.ChannelID, invitesEmbed(snapshot))
}

func (b *Bot) cmdResetChat(s *discordgo.Session, m *discordgo.MessageCreate) {
	if b.chat == nil {
		b.reply(s, m.ChannelID, "Chat is not enabled.")
		return
	}
	err := b.chat.Reset(m.GuildID)
	if err != nil {
		b.reportError(s, m.ChannelID, "resetchat", err)
		return
	}
	b.reply(s, m.ChannelID, "Conversation history cleared.")
}

func (b *Bot) cmdHelp(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.replyEmbed(s, m.ChannelID, helpEmbed(b.prefix, b.isAdmin(s, m)))
}

// onMention feeds the message to the AI chat, with the bot mention stripped
// so the model sees clean text.
func (b *Bot) onMention(s *discordgo.Session, m *discordgo.MessageCreate) {
	if b.chat == nil {
		return
	}

	content := stripMentions(m.Content, s.State.User.ID)
	if content == "" {
		content = "Hello!"
	}

	err := s.ChannelTyping(m.ChannelID)
	if err != nil {
		b.log.Debug("typing indicator failed", sl.Err(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
	defer cancel()
	answer, err := b.chat.Reply(ctx, m.GuildID, m.Author.Username, content)
	if err != nil {
		b.log.Warn("chat reply failed", sl.Guild(m.GuildID), sl.User(m.Author.ID), sl.Err(err))
		b.reply(s, m.ChannelID, "I could not come up with a reply, sorry. Try again in a bit.")
		return
	}
	b.reply(s, m.ChannelID, answer)
}

// snapshotStats adapts the tracker aggregate for the stats embed.
func (b *Bot) snapshotStats(guildID string) []tracker.InviterStats {
	return tracker.AggregateByInviter(b.tracker.Snapshot(guildID))
}
