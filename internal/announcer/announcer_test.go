package announcer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildsync/entity"
)

var piDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

type fakeDB struct {
	birthdays    []entity.Birthday
	birthdaysErr error
	configs      map[string]*entity.GuildConfig
	askedKey     string
}

func (d *fakeDB) BirthdaysOn(monthDay string) ([]entity.Birthday, error) {
	d.askedKey = monthDay
	return d.birthdays, d.birthdaysErr
}

func (d *fakeDB) GuildConfig(guildID string) (*entity.GuildConfig, error) {
	return d.configs[guildID], nil
}

func (d *fakeDB) AnnouncingGuilds() ([]entity.GuildConfig, error) {
	var result []entity.GuildConfig
	for _, conf := range d.configs {
		if conf != nil && conf.AnnounceChannelID != "" {
			result = append(result, *conf)
		}
	}
	return result, nil
}

type fakeEvents struct {
	event entity.Holiday
}

func (e *fakeEvents) Today(_ context.Context, _ time.Time) entity.Holiday {
	return e.event
}

type sentBirthday struct {
	channelID string
	userID    string
	message   string
}

type fakeMessenger struct {
	birthdays []sentBirthday
	events    []string
	fail      bool
}

func (f *fakeMessenger) SendBirthday(channelID string, birthday entity.Birthday, message string) error {
	if f.fail {
		f.fail = false
		return errors.New("channel gone")
	}
	f.birthdays = append(f.birthdays, sentBirthday{channelID, birthday.UserID, message})
	return nil
}

func (f *fakeMessenger) SendDailyEvent(channelID string, _ entity.Holiday) error {
	f.events = append(f.events, channelID)
	return nil
}

func newTestAnnouncer(db *fakeDB, events *fakeEvents, messenger *fakeMessenger) *Announcer {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), db, events, messenger)
}

func TestSendBirthdaysRouting(t *testing.T) {
	db := &fakeDB{
		birthdays: []entity.Birthday{
			{GuildID: "g1", UserID: "u1", UserName: "Ann", MonthDay: "03-14", Message: "It is {USER_NAME}'s big day!"},
			{GuildID: "g1", UserID: "u2", UserName: "Ben", MonthDay: "03-14"},
			{GuildID: "g2", UserID: "u3", UserName: "Cal", MonthDay: "03-14"},
		},
		configs: map[string]*entity.GuildConfig{
			"g1": {GuildID: "g1", AnnounceChannelID: "chan-1", BirthdayMessage: "Cheers {USER_MENTION}!"},
			"g2": {GuildID: "g2"},
		},
	}
	messenger := &fakeMessenger{}

	newTestAnnouncer(db, &fakeEvents{}, messenger).SendBirthdays(piDay)

	assert.Equal(t, "03-14", db.askedKey)
	require.Len(t, messenger.birthdays, 2)
	assert.Equal(t, sentBirthday{"chan-1", "u1", "It is Ann's big day!"}, messenger.birthdays[0])
	assert.Equal(t, sentBirthday{"chan-1", "u2", "Cheers <@u2>!"}, messenger.birthdays[1])
}

func TestSendBirthdaysDefaultTemplate(t *testing.T) {
	db := &fakeDB{
		birthdays: []entity.Birthday{
			{GuildID: "g1", UserID: "u1", UserName: "Ann", MonthDay: "03-14"},
		},
		configs: map[string]*entity.GuildConfig{
			"g1": {GuildID: "g1", AnnounceChannelID: "chan-1"},
		},
	}
	messenger := &fakeMessenger{}

	newTestAnnouncer(db, &fakeEvents{}, messenger).SendBirthdays(piDay)

	require.Len(t, messenger.birthdays, 1)
	assert.Equal(t, "Happy Birthday <@u1>! Wishing you a fantastic day, Ann!", messenger.birthdays[0].message)
}

func TestSendBirthdaysFailedSendDoesNotStopRest(t *testing.T) {
	db := &fakeDB{
		birthdays: []entity.Birthday{
			{GuildID: "g1", UserID: "u1", UserName: "Ann", MonthDay: "03-14"},
			{GuildID: "g1", UserID: "u2", UserName: "Ben", MonthDay: "03-14"},
		},
		configs: map[string]*entity.GuildConfig{
			"g1": {GuildID: "g1", AnnounceChannelID: "chan-1"},
		},
	}
	messenger := &fakeMessenger{fail: true}

	newTestAnnouncer(db, &fakeEvents{}, messenger).SendBirthdays(piDay)

	require.Len(t, messenger.birthdays, 1)
	assert.Equal(t, "u2", messenger.birthdays[0].userID)
}

func TestSendBirthdaysUnknownGuildSkipped(t *testing.T) {
	db := &fakeDB{
		birthdays: []entity.Birthday{
			{GuildID: "ghost", UserID: "u1", UserName: "Ann", MonthDay: "03-14"},
		},
		configs: map[string]*entity.GuildConfig{},
	}
	messenger := &fakeMessenger{}

	newTestAnnouncer(db, &fakeEvents{}, messenger).SendBirthdays(piDay)

	assert.Empty(t, messenger.birthdays)
}

func TestSendDailyEvent(t *testing.T) {
	db := &fakeDB{
		configs: map[string]*entity.GuildConfig{
			"g1": {GuildID: "g1", AnnounceChannelID: "chan-1"},
			"g2": {GuildID: "g2", AnnounceChannelID: "chan-2"},
			"g3": {GuildID: "g3"},
		},
	}
	events := &fakeEvents{event: entity.Holiday{Name: "National Widget Day", Source: "checkiday"}}
	messenger := &fakeMessenger{}

	newTestAnnouncer(db, events, messenger).SendDailyEvent(context.Background(), piDay)

	assert.ElementsMatch(t, []string{"chan-1", "chan-2"}, messenger.events)
}

func TestResolveMessage(t *testing.T) {
	birthday := entity.Birthday{UserID: "u1", UserName: "Ann"}

	tests := []struct {
		name     string
		birthday entity.Birthday
		conf     *entity.GuildConfig
		want     string
	}{
		{
			name:     "built-in default without config",
			birthday: birthday,
			conf:     nil,
			want:     "Happy Birthday <@u1>! Wishing you a fantastic day, Ann!",
		},
		{
			name:     "guild template overrides default",
			birthday: birthday,
			conf:     &entity.GuildConfig{BirthdayMessage: "Party time {USER_NAME}"},
			want:     "Party time Ann",
		},
		{
			name: "member message overrides guild template",
			birthday: entity.Birthday{
				UserID: "u1", UserName: "Ann", Message: "Special wishes {USER_MENTION}",
			},
			conf: &entity.GuildConfig{BirthdayMessage: "Party time {USER_NAME}"},
			want: "Special wishes <@u1>",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveMessage(tc.birthday, tc.conf))
		})
	}
}
