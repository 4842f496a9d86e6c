// Package announcer composes the scheduled broadcasts: birthday wishes for
// everyone whose stored date matches today, and the day's event each morning.
// It decides who gets announced where; actually posting to a channel is the
// messenger's job.
package announcer

import (
	"context"
	"guildsync/entity"
	"guildsync/lib/clock"
	"guildsync/lib/sl"
	"log/slog"
	"strings"
	"time"
)

const defaultBirthdayTemplate = "Happy Birthday {USER_MENTION}! Wishing you a fantastic day, {USER_NAME}!"

type Database interface {
	BirthdaysOn(monthDay string) ([]entity.Birthday, error)
	GuildConfig(guildID string) (*entity.GuildConfig, error)
	AnnouncingGuilds() ([]entity.GuildConfig, error)
}

type Events interface {
	Today(ctx context.Context, now time.Time) entity.Holiday
}

type Messenger interface {
	SendBirthday(channelID string, birthday entity.Birthday, message string) error
	SendDailyEvent(channelID string, event entity.Holiday) error
}

type Announcer struct {
	log       *slog.Logger
	db        Database
	events    Events
	messenger Messenger
}

func New(logger *slog.Logger, db Database, events Events, messenger Messenger) *Announcer {
	return &Announcer{
		log:       logger.With(sl.Module("announcer")),
		db:        db,
		events:    events,
		messenger: messenger,
	}
}

// SendBirthdays announces every birthday stored for today's MM-DD key.
// Guilds without an announcement channel are skipped; one failed send does
// not stop the rest.
func (a *Announcer) SendBirthdays(now time.Time) {
	monthDay := clock.MonthDay(now)
	birthdays, err := a.db.BirthdaysOn(monthDay)
	if err != nil {
		a.log.Error("failed to load birthdays", slog.String("date", monthDay), sl.Err(err))
		return
	}
	if len(birthdays) == 0 {
		a.log.Debug("no birthdays today", slog.String("date", monthDay))
		return
	}

	configs := make(map[string]*entity.GuildConfig)
	sent := 0
	for _, birthday := range birthdays {
		conf, ok := configs[birthday.GuildID]
		if !ok {
			conf, err = a.db.GuildConfig(birthday.GuildID)
			if err != nil {
				a.log.Error("failed to load guild config", sl.Guild(birthday.GuildID), sl.Err(err))
				continue
			}
			configs[birthday.GuildID] = conf
		}
		if conf == nil || conf.AnnounceChannelID == "" {
			a.log.Debug("announcement channel not configured", sl.Guild(birthday.GuildID))
			continue
		}

		message := ResolveMessage(birthday, conf)
		err = a.messenger.SendBirthday(conf.AnnounceChannelID, birthday, message)
		if err != nil {
			a.log.Error("failed to send birthday",
				sl.Guild(birthday.GuildID), sl.User(birthday.UserID), sl.Err(err))
			continue
		}
		sent++
	}
	a.log.Info("birthday announcements done",
		slog.String("date", monthDay), slog.Int("matched", len(birthdays)), slog.Int("sent", sent))
}

// SendDailyEvent posts the day's event into every guild that has an
// announcement channel bound.
func (a *Announcer) SendDailyEvent(ctx context.Context, now time.Time) {
	event := a.events.Today(ctx, now)

	guilds, err := a.db.AnnouncingGuilds()
	if err != nil {
		a.log.Error("failed to list announcing guilds", sl.Err(err))
		return
	}

	sent := 0
	for _, conf := range guilds {
		err = a.messenger.SendDailyEvent(conf.AnnounceChannelID, event)
		if err != nil {
			a.log.Error("failed to send daily event", sl.Guild(conf.GuildID), sl.Err(err))
			continue
		}
		sent++
	}
	a.log.Info("daily event announced",
		slog.String("event", event.Name), slog.String("source", event.Source), slog.Int("guilds", sent))
}

// ResolveMessage picks the announcement text for one birthday: the member's
// own message wins over the guild template, which wins over the built-in
// default. Placeholders are expanded for the birthday's member.
func ResolveMessage(birthday entity.Birthday, conf *entity.GuildConfig) string {
	template := defaultBirthdayTemplate
	if conf != nil && conf.BirthdayMessage != "" {
		template = conf.BirthdayMessage
	}
	if birthday.Message != "" {
		template = birthday.Message
	}
	return strings.NewReplacer(
		"{USER_MENTION}", "<@"+birthday.UserID+">",
		"{USER_NAME}", birthday.UserName,
	).Replace(template)
}
