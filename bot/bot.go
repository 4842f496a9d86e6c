// Package bot implements the Discord-facing surface of the application.
//
// Architecture overview:
//   - bot.go      — Bot struct, lifecycle (Start/Stop), guild config cache, Database interface
//   - events.go   — Gateway handlers: guild create/delete, member add/remove, invite create/delete, messages
//   - commands.go — Member commands: !birthday, !deletebirthday, !birthdays, !invites, !resetchat, !help
//   - admin.go    — Admin commands: !config, !defaultrole, !invitestats, !testwelcome, !testbirthday, !testevent
//   - embeds.go   — Embed builders for welcome, leave, birthday, invite and daily event messages
//   - messaging.go — Outbound delivery: announcer messenger and ops-channel notifications
//   - helpers.go  — Shared utilities: reply, admin check, channel/role reference parsing
//
// Data flow for a member join:
//
//	GuildMemberAdd → tracker.MemberJoined (snapshot diff + cache commit) →
//	  welcome embed in the welcome channel → journal line in the log channel →
//	  default role assignment
//
// Thread safety: the guild config cache is guarded by sync.RWMutex. Handlers
// read through findConfig; mutating commands write storage first, then call
// refreshConfig to reload the cached entry.
package bot

import (
	"context"
	"fmt"
	"guildsync/entity"
	"guildsync/internal/config"
	"guildsync/internal/gateway"
	"guildsync/lib/sl"
	"guildsync/tracker"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Database defines the storage operations the bot depends on.
// Implemented by internal/database/mongo.go.
type Database interface {
	EnsureGuildConfig(guildID string) error
	GuildConfig(guildID string) (*entity.GuildConfig, error)
	SetGuildChannel(guildID, kind, channelID string) error
	SetDefaultRole(guildID, roleID string) error
	SetBirthdayMessage(guildID, message string) error
	UpsertBirthday(birthday *entity.Birthday) error
	FindBirthday(guildID, userID string) (*entity.Birthday, error)
	DeleteBirthday(guildID, userID string) (bool, error)
	GuildBirthdays(guildID string) ([]entity.Birthday, error)
}

// Chat answers mentions. Nil when the AI feature is disabled.
type Chat interface {
	Reply(ctx context.Context, guildID, author, message string) (string, error)
	Reset(guildID string) error
}

// Events supplies the day's event for the !testevent command.
type Events interface {
	Today(ctx context.Context, now time.Time) entity.Holiday
}

// Bot is the central Discord bot instance. It owns the gateway handlers and
// caches guild configs in memory, refreshed after every state change.
type Bot struct {
	log          *slog.Logger
	gw           *gateway.Discord
	session      *discordgo.Session
	db           Database
	tracker      *tracker.Tracker
	chat         Chat
	events       Events
	prefix       string
	opsChannelID string
	joinTimeout  time.Duration
	mu           sync.RWMutex // guards configs
	configs      map[string]*entity.GuildConfig
	removers     []func()
}

func New(logger *slog.Logger, gw *gateway.Discord, db Database, trk *tracker.Tracker, chat Chat, events Events, conf config.DiscordConfig) *Bot {
	timeout := time.Duration(conf.MemberTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Bot{
		log:          logger.With(sl.Module("bot")),
		gw:           gw,
		session:      gw.Session(),
		db:           db,
		tracker:      trk,
		chat:         chat,
		events:       events,
		prefix:       conf.Prefix,
		opsChannelID: conf.OpsChannelID,
		joinTimeout:  timeout,
		configs:      make(map[string]*entity.GuildConfig),
	}
}

// Start registers the gateway handlers and opens the session. Guild caches
// are seeded per guild as GuildCreate events arrive after the handshake.
func (b *Bot) Start() error {
	b.removers = append(b.removers,
		b.session.AddHandler(b.onReady),
		b.session.AddHandler(b.onGuildCreate),
		b.session.AddHandler(b.onGuildDelete),
		b.session.AddHandler(b.onMemberAdd),
		b.session.AddHandler(b.onMemberRemove),
		b.session.AddHandler(b.onInviteCreate),
		b.session.AddHandler(b.onInviteDelete),
		b.session.AddHandler(b.onMessage),
	)

	err := b.gw.Open()
	if err != nil {
		return fmt.Errorf("opening gateway session: %w", err)
	}
	return nil
}

func (b *Bot) Stop() {
	for _, remove := range b.removers {
		remove()
	}
	b.removers = nil

	b.log.Info("stopping discord bot")
	err := b.gw.Close()
	if err != nil {
		b.log.Error("closing gateway session", sl.Err(err))
	}
}

// findConfig returns the cached guild config, loading it on first use.
// Returns nil when storage is disabled or the guild has no document yet.
func (b *Bot) findConfig(guildID string) *entity.GuildConfig {
	b.mu.RLock()
	conf, ok := b.configs[guildID]
	b.mu.RUnlock()
	if ok {
		return conf
	}
	return b.refreshConfig(guildID)
}

// refreshConfig reloads one guild's config from storage into the cache.
func (b *Bot) refreshConfig(guildID string) *entity.GuildConfig {
	if b.db == nil {
		return nil
	}
	conf, err := b.db.GuildConfig(guildID)
	if err != nil {
		b.log.Error("loading guild config", sl.Guild(guildID), sl.Err(err))
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.configs[guildID] = conf
	return conf
}

func (b *Bot) dropConfig(guildID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.configs, guildID)
}
