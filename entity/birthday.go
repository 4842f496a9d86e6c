package entity

import (
	"net/http"
	"time"

	"guildsync/lib/validate"
)

// Birthday stores one member's MM-DD birthday within a guild. Message, when
// set, overrides the guild announcement template for this member.
type Birthday struct {
	GuildID   string    `json:"guild_id" bson:"guild_id" validate:"required"`
	UserID    string    `json:"user_id" bson:"user_id" validate:"required"`
	UserName  string    `json:"user_name" bson:"user_name"`
	MonthDay  string    `json:"birthday" bson:"birthday" validate:"required,monthday"`
	Message   string    `json:"custom_message,omitempty" bson:"custom_message,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

func (b *Birthday) Bind(_ *http.Request) error {
	return validate.Struct(b)
}
