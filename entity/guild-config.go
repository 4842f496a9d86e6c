package entity

import (
	"net/http"
	"time"

	"guildsync/lib/validate"
)

// Channel kinds an admin can bind with the config command or the dashboard.
const (
	ChannelWelcome      = "welcome"
	ChannelLog          = "log"
	ChannelAnnouncement = "announcement"
)

var allChannelKinds = []string{
	ChannelWelcome,
	ChannelLog,
	ChannelAnnouncement,
}

func AllChannelKinds() []string {
	result := make([]string, len(allChannelKinds))
	copy(result, allChannelKinds)
	return result
}

func IsValidChannelKind(kind string) bool {
	for _, k := range allChannelKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// GuildConfig holds per-guild settings. A document is created with defaults
// the first time the bot sees a guild; commands and the dashboard mutate it.
// BirthdayMessage supports the {USER_MENTION} and {USER_NAME} placeholders.
type GuildConfig struct {
	GuildID           string    `json:"guild_id" bson:"guild_id" validate:"required"`
	WelcomeChannelID  string    `json:"welcome_channel_id" bson:"welcome_channel_id"`
	LogChannelID      string    `json:"log_channel_id" bson:"log_channel_id"`
	AnnounceChannelID string    `json:"announcement_channel_id" bson:"announcement_channel_id"`
	DefaultRoleID     string    `json:"default_role_id" bson:"default_role_id"`
	BirthdayMessage   string    `json:"birthday_message" bson:"birthday_message"`
	UpdatedAt         time.Time `json:"updated_at" bson:"updated_at"`
}

func (g *GuildConfig) Bind(_ *http.Request) error {
	return validate.Struct(g)
}
