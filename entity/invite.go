// Package entity defines domain types shared across the application.
package entity

import (
	"fmt"
	"time"
)

// Invite is the cached view of one guild invite link. Usage counters come
// from gateway fetches and invite-create notifications; the tracker compares
// them across snapshots to attribute joins.
type Invite struct {
	Code        string    `json:"code"`
	GuildID     string    `json:"guild_id"`
	InviterID   string    `json:"inviter_id,omitempty"`
	InviterName string    `json:"inviter_name,omitempty"`
	Uses        int       `json:"uses"`
	MaxUses     int       `json:"max_uses"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate guards the tracker against snapshots the gateway should never
// produce. A failure here is a bug upstream, not a user condition.
func (i Invite) Validate() error {
	if i.Code == "" {
		return fmt.Errorf("invite without code")
	}
	if i.Uses < 0 {
		return fmt.Errorf("invite %s: negative uses %d", i.Code, i.Uses)
	}
	if i.MaxUses < 0 {
		return fmt.Errorf("invite %s: negative max uses %d", i.Code, i.MaxUses)
	}
	return nil
}

// Snapshot is a point-in-time copy of all invites in one guild, keyed by code.
type Snapshot map[string]Invite

func (s Snapshot) Clone() Snapshot {
	c := make(Snapshot, len(s))
	for code, inv := range s {
		c[code] = inv
	}
	return c
}
