package core

import (
	"fmt"
	"guildsync/entity"
	"guildsync/lib/sl"
	"guildsync/tracker"
	"log/slog"
)

type AuthService interface {
	OperatorByToken(token string) (*entity.Operator, error)
}

// Storage is the slice of the database the dashboard needs.
// Implemented by internal/database/mongo.go.
type Storage interface {
	GuildConfig(guildID string) (*entity.GuildConfig, error)
	SaveGuildConfig(conf *entity.GuildConfig) error
	GuildBirthdays(guildID string) ([]entity.Birthday, error)
	UpsertBirthday(birthday *entity.Birthday) error
	DeleteBirthday(guildID, userID string) (bool, error)
	RecentMemberEvents(guildID string, limit int) ([]entity.MemberEvent, error)
}

// InviteCache exposes the tracker's live per-guild snapshot.
type InviteCache interface {
	Snapshot(guildID string) entity.Snapshot
}

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Core ties the dashboard handlers to storage and the invite cache.
type Core struct {
	db      Storage
	invites InviteCache
	auth    AuthService
	log     *slog.Logger
}

func New(log *slog.Logger, db Storage, invites InviteCache, auth AuthService) Core {
	return Core{
		db:      db,
		invites: invites,
		auth:    auth,
		log:     log.With(sl.Module("core")),
	}
}

func (c Core) AuthenticateByToken(token string) (*entity.Operator, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.OperatorByToken(token)
}

func (c Core) GuildSettings(guildID string) (*entity.GuildConfig, error) {
	if c.db == nil {
		return nil, fmt.Errorf("storage not connected")
	}
	return c.db.GuildConfig(guildID)
}

func (c Core) SaveGuildSettings(conf *entity.GuildConfig) error {
	if c.db == nil {
		return fmt.Errorf("storage not connected")
	}
	return c.db.SaveGuildConfig(conf)
}

func (c Core) Birthdays(guildID string) ([]entity.Birthday, error) {
	if c.db == nil {
		return nil, fmt.Errorf("storage not connected")
	}
	return c.db.GuildBirthdays(guildID)
}

func (c Core) SaveBirthday(birthday *entity.Birthday) error {
	if c.db == nil {
		return fmt.Errorf("storage not connected")
	}
	return c.db.UpsertBirthday(birthday)
}

func (c Core) DeleteBirthday(guildID, userID string) (bool, error) {
	if c.db == nil {
		return false, fmt.Errorf("storage not connected")
	}
	return c.db.DeleteBirthday(guildID, userID)
}

// InviteOverview reads the live cache; no platform call is made.
func (c Core) InviteOverview(guildID string) (*tracker.Overview, error) {
	if c.invites == nil {
		return nil, fmt.Errorf("invite cache not connected")
	}
	overview := tracker.BuildOverview(c.invites.Snapshot(guildID))
	return &overview, nil
}

func (c Core) MemberEvents(guildID string, limit int) ([]entity.MemberEvent, error) {
	if c.db == nil {
		return nil, fmt.Errorf("storage not connected")
	}
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	return c.db.RecentMemberEvents(guildID, limit)
}
