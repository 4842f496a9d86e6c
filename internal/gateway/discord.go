// Package gateway wraps the Discord session and normalizes platform
// payloads into domain types. Event routing lives in the bot package;
// REST lookups needed by the tracker go through here.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"github.com/bwmarrin/discordgo"
	"guildsync/entity"
	"guildsync/lib/sl"
	"guildsync/tracker"
	"log/slog"
	"time"
)

type Discord struct {
	log     *slog.Logger
	session *discordgo.Session
}

func New(token string, log *slog.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildInvites |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent
	return &Discord{
		log:     log.With(sl.Module("gateway")),
		session: session,
	}, nil
}

// Session exposes the raw session for event handler registration.
func (d *Discord) Session() *discordgo.Session {
	return d.session
}

func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (d *Discord) Close() error {
	return d.session.Close()
}

// GuildInvites lists the live invites of a guild. Missing access maps to
// tracker.ErrPermissionDenied so attribution degrades instead of failing.
func (d *Discord) GuildInvites(ctx context.Context, guildID string) ([]entity.Invite, error) {
	start := time.Now()
	invites, err := d.session.GuildInvites(guildID, discordgo.WithContext(ctx))
	if err != nil {
		if isPermissionError(err) {
			return nil, fmt.Errorf("guild %s: %w", guildID, tracker.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("list invites for guild %s: %w", guildID, err)
	}
	d.log.Debug("invites fetched",
		sl.Guild(guildID),
		slog.Int("count", len(invites)),
		slog.Duration("elapsed", time.Since(start)))

	result := make([]entity.Invite, 0, len(invites))
	for _, inv := range invites {
		result = append(result, NormalizeInvite(guildID, inv))
	}
	return result, nil
}

// NormalizeInvite converts an SDK invite to the cached record shape.
func NormalizeInvite(guildID string, inv *discordgo.Invite) entity.Invite {
	record := entity.Invite{
		Code:      inv.Code,
		GuildID:   guildID,
		Uses:      inv.Uses,
		MaxUses:   inv.MaxUses,
		CreatedAt: inv.CreatedAt,
	}
	if inv.Guild != nil && inv.Guild.ID != "" {
		record.GuildID = inv.Guild.ID
	}
	if inv.Inviter != nil {
		record.InviterID = inv.Inviter.ID
		record.InviterName = inv.Inviter.Username
	}
	return record
}

// NormalizeInviteCreate converts a create notification payload; the guild id
// rides on the event, not the embedded invite.
func NormalizeInviteCreate(e *discordgo.InviteCreate) entity.Invite {
	record := entity.Invite{
		Code:      e.Code,
		GuildID:   e.GuildID,
		Uses:      e.Uses,
		MaxUses:   e.MaxUses,
		CreatedAt: e.CreatedAt,
	}
	if e.Inviter != nil {
		record.InviterID = e.Inviter.ID
		record.InviterName = e.Inviter.Username
	}
	return record
}

func isPermissionError(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message == nil {
		return false
	}
	switch restErr.Message.Code {
	case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
		return true
	}
	return false
}
