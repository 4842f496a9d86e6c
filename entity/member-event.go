package entity

import "time"

// Member journal actions.
const (
	ActionJoin  = "join"
	ActionLeave = "leave"
)

// MemberEvent is one audit journal row: a member joining or leaving a guild,
// with the invite attribution when one was established. The tracker writes
// these; only the dashboard reads them back.
type MemberEvent struct {
	EventID     string    `json:"event_id" bson:"event_id"`
	GuildID     string    `json:"guild_id" bson:"guild_id"`
	MemberID    string    `json:"member_id" bson:"member_id"`
	MemberName  string    `json:"member_name" bson:"member_name"`
	Action      string    `json:"action" bson:"action"`
	InviteCode  string    `json:"invite_code,omitempty" bson:"invite_code,omitempty"`
	InviterID   string    `json:"inviter_id,omitempty" bson:"inviter_id,omitempty"`
	InviterName string    `json:"inviter_name,omitempty" bson:"inviter_name,omitempty"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}
