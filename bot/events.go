package bot

import (
	"context"
	"guildsync/internal/gateway"
	"guildsync/lib/sl"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("gateway session ready",
		slog.String("user", r.User.Username),
		slog.Int("guilds", len(r.Guilds)))
}

// onGuildCreate fires for every guild on startup and again when the bot is
// added to a new guild, so it doubles as the seeding point for both the
// config document and the invite cache.
func (b *Bot) onGuildCreate(_ *discordgo.Session, e *discordgo.GuildCreate) {
	b.log.Info("guild available",
		sl.Guild(e.ID),
		slog.String("name", e.Name),
		slog.Int("members", e.MemberCount))

	if b.db != nil {
		err := b.db.EnsureGuildConfig(e.ID)
		if err != nil {
			b.log.Error("ensuring guild config", sl.Guild(e.ID), sl.Err(err))
		}
		b.refreshConfig(e.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := b.tracker.Seed(ctx, e.ID)
	if err != nil {
		b.log.Error("seeding invite cache", sl.Guild(e.ID), sl.Err(err))
	}
}

// onGuildDelete distinguishes an outage from a removal. An unavailable
// guild keeps its caches; only an actual removal discards them.
func (b *Bot) onGuildDelete(_ *discordgo.Session, e *discordgo.GuildDelete) {
	if e.Unavailable {
		b.log.Warn("guild unavailable", sl.Guild(e.ID))
		return
	}
	b.log.Info("removed from guild", sl.Guild(e.ID))
	b.tracker.Forget(e.ID)
	b.dropConfig(e.ID)
}

func (b *Bot) onMemberAdd(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.User == nil || e.User.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.joinTimeout)
	defer cancel()
	att, err := b.tracker.MemberJoined(ctx, e.GuildID, e.User.ID, e.User.Username)
	if err != nil {
		// Attribution failed but the member is real; welcome them anyway.
		b.log.Error("member join attribution failed", sl.Guild(e.GuildID), sl.User(e.User.ID), sl.Err(err))
	}

	conf := b.findConfig(e.GuildID)
	if conf == nil {
		return
	}

	if conf.WelcomeChannelID != "" {
		b.replyEmbed(s, conf.WelcomeChannelID, welcomeEmbed(e.User, att, b.memberCount(s, e.GuildID)))
	}
	if conf.LogChannelID != "" {
		b.reply(s, conf.LogChannelID, joinLogLine(e.User, att))
	}
	if conf.DefaultRoleID != "" {
		err = s.GuildMemberRoleAdd(e.GuildID, e.User.ID, conf.DefaultRoleID)
		if err != nil {
			b.log.Warn("assigning default role",
				sl.Guild(e.GuildID), sl.User(e.User.ID),
				slog.String("role", conf.DefaultRoleID), sl.Err(err))
		}
	}
}

func (b *Bot) onMemberRemove(s *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e.User == nil || e.User.Bot {
		return
	}
	b.tracker.MemberLeft(e.GuildID, e.User.ID, e.User.Username)

	conf := b.findConfig(e.GuildID)
	if conf == nil || conf.LogChannelID == "" {
		return
	}
	b.replyEmbed(s, conf.LogChannelID, leaveEmbed(e.User))
}

func (b *Bot) onInviteCreate(_ *discordgo.Session, e *discordgo.InviteCreate) {
	b.tracker.InviteCreated(gateway.NormalizeInviteCreate(e))
}

func (b *Bot) onInviteDelete(_ *discordgo.Session, e *discordgo.InviteDelete) {
	b.tracker.InviteDeleted(e.GuildID, e.Code)
}

// onMessage routes prefixed commands and AI mentions. DMs and bot authors
// are ignored.
func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	content := strings.TrimSpace(m.Content)
	if strings.HasPrefix(content, b.prefix) {
		b.routeCommand(s, m, content)
		return
	}
	if b.mentionsMe(s, m) {
		b.onMention(s, m)
	}
}

func (b *Bot) routeCommand(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	fields := strings.Fields(strings.TrimPrefix(content, b.prefix))
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "birthday":
		b.cmdBirthday(s, m, args)
	case "deletebirthday":
		b.cmdDeleteBirthday(s, m, args)
	case "birthdays":
		b.cmdBirthdays(s, m)
	case "invites":
		b.cmdInvites(s, m)
	case "resetchat":
		b.cmdResetChat(s, m)
	case "help":
		b.cmdHelp(s, m)
	case "config":
		b.cmdConfig(s, m, args)
	case "defaultrole":
		b.cmdDefaultRole(s, m, args)
	case "invitestats":
		b.cmdInviteStats(s, m)
	case "testwelcome":
		b.cmdTestWelcome(s, m)
	case "testbirthday":
		b.cmdTestBirthday(s, m, args)
	case "testevent":
		b.cmdTestEvent(s, m)
	}
}

func (b *Bot) mentionsMe(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if s.State == nil || s.State.User == nil {
		return false
	}
	for _, user := range m.Mentions {
		if user.ID == s.State.User.ID {
			return true
		}
	}
	return false
}
