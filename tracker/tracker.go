// Package tracker implements invite attribution for guild joins.
//
// The platform never reports which invite admitted a member, so the tracker
// keeps a per-guild cache of invite usage counters and diffs it against a
// fresh fetch on every arrival: the invite whose counter grew is the one
// that was consumed. Invite create and delete notifications mutate the
// cache directly; arrivals refresh it wholesale through a merge that
// respects notifications which completed while the fetch was on the wire.
// The cache lives in memory only and is rebuilt from the platform after a
// restart.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"guildsync/entity"
	"guildsync/lib/sl"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrPermissionDenied marks a guild where the bot may not list invites.
	// Non-fatal: joins there stay unattributed until access appears.
	ErrPermissionDenied = errors.New("invite access denied")
	// ErrMalformedSnapshot marks snapshot data the gateway should never
	// produce. Fatal to the single attribution task, never to the process.
	ErrMalformedSnapshot = errors.New("malformed invite snapshot")
)

// Fetcher lists the live invites of one guild on the platform.
type Fetcher interface {
	GuildInvites(ctx context.Context, guildID string) ([]entity.Invite, error)
}

// Journal persists member arrival and departure events for audit.
type Journal interface {
	SaveMemberEvent(event *entity.MemberEvent) error
}

// Tracker owns the invite snapshot store and runs the attribution cycle.
// A nil journal disables audit writes.
type Tracker struct {
	log     *slog.Logger
	store   *Store
	fetcher Fetcher
	journal Journal
	mu      sync.Mutex
	denied  map[string]bool
}

func New(log *slog.Logger, fetcher Fetcher, journal Journal) *Tracker {
	return &Tracker{
		log:     log.With(sl.Module("tracker")),
		store:   NewStore(),
		fetcher: fetcher,
		journal: journal,
		denied:  make(map[string]bool),
	}
}

// Seed primes the cache for a guild at startup or when the bot joins one.
// Permission denial is tolerated here so a locked-down guild still loads.
func (t *Tracker) Seed(ctx context.Context, guildID string) error {
	_, since := t.store.View(guildID)
	fetched, err := t.fetcher.GuildInvites(ctx, guildID)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			t.notePermissionDenied(guildID)
			return nil
		}
		return fmt.Errorf("seed guild %s: %w", guildID, err)
	}
	t.clearPermissionDenied(guildID)

	for _, inv := range fetched {
		if verr := inv.Validate(); verr != nil {
			return fmt.Errorf("seed guild %s: %w: %v", guildID, ErrMalformedSnapshot, verr)
		}
	}
	snap := t.store.Commit(guildID, fetched, since)
	t.log.Debug("invite cache seeded", sl.Guild(guildID), slog.Int("invites", len(snap)))
	return nil
}

// MemberJoined runs the attribution cycle for one arrival: view the cached
// snapshot, fetch the live list, diff, record the outcome in the journal,
// commit the fetched state. A failed or denied fetch is absorbed: the join
// is journaled as unattributed and nothing is committed. The only returned
// error is a malformed snapshot, which aborts the cycle entirely.
func (t *Tracker) MemberJoined(ctx context.Context, guildID, memberID, memberName string) (entity.Attribution, error) {
	var att entity.Attribution

	prev, since := t.store.View(guildID)
	fetched, err := t.fetcher.GuildInvites(ctx, guildID)
	switch {
	case errors.Is(err, ErrPermissionDenied):
		t.notePermissionDenied(guildID)
	case err != nil:
		t.log.Warn("invite fetch failed, join stays unattributed",
			sl.Guild(guildID), sl.User(memberID), sl.Err(err))
	default:
		t.clearPermissionDenied(guildID)
		att, err = Attribute(prev, snapshotOf(fetched))
		if err != nil {
			t.log.Error("attribution aborted",
				sl.Guild(guildID), sl.User(memberID), sl.Err(err))
			return entity.Attribution{}, err
		}
		t.store.Commit(guildID, fetched, since)
	}

	t.record(guildID, memberID, memberName, entity.ActionJoin, att)
	return att, nil
}

// Refresh fetches the live invite list and commits it through the merge,
// returning the resulting snapshot. A failed or denied fetch falls back to
// the cached view so callers always have something to show; the only error
// is malformed platform data.
func (t *Tracker) Refresh(ctx context.Context, guildID string) (entity.Snapshot, error) {
	prev, since := t.store.View(guildID)
	fetched, err := t.fetcher.GuildInvites(ctx, guildID)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			t.notePermissionDenied(guildID)
		} else {
			t.log.Warn("invite refresh failed, serving cached state", sl.Guild(guildID), sl.Err(err))
		}
		return prev, nil
	}
	t.clearPermissionDenied(guildID)

	for _, inv := range fetched {
		if verr := inv.Validate(); verr != nil {
			return nil, fmt.Errorf("refresh guild %s: %w: %v", guildID, ErrMalformedSnapshot, verr)
		}
	}
	return t.store.Commit(guildID, fetched, since), nil
}

// MemberLeft journals a departure. The invite cache is left alone: leaving
// does not change any use counter.
func (t *Tracker) MemberLeft(guildID, memberID, memberName string) {
	t.record(guildID, memberID, memberName, entity.ActionLeave, entity.Attribution{})
}

// InviteCreated applies a create notification. Repeated notifications for
// the same code are harmless overwrites.
func (t *Tracker) InviteCreated(inv entity.Invite) {
	if err := inv.Validate(); err != nil {
		t.log.Error("invite create notification rejected", sl.Guild(inv.GuildID), sl.Err(err))
		return
	}
	t.store.Upsert(inv)
	t.log.Debug("invite cached", sl.Guild(inv.GuildID), sl.Code(inv.Code))
}

// InviteDeleted applies a delete notification; unknown codes are a no-op.
func (t *Tracker) InviteDeleted(guildID, code string) {
	t.store.Remove(guildID, code)
	t.log.Debug("invite dropped", sl.Guild(guildID), sl.Code(code))
}

// Forget discards a guild cache when the bot leaves the guild.
func (t *Tracker) Forget(guildID string) {
	t.store.Drop(guildID)
	t.mu.Lock()
	delete(t.denied, guildID)
	t.mu.Unlock()
	t.log.Debug("invite cache dropped", sl.Guild(guildID))
}

// Snapshot exposes the cached state for commands and the dashboard.
func (t *Tracker) Snapshot(guildID string) entity.Snapshot {
	return t.store.Snapshot(guildID)
}

func (t *Tracker) record(guildID, memberID, memberName, action string, att entity.Attribution) {
	if t.journal == nil {
		return
	}
	event := &entity.MemberEvent{
		EventID:     uuid.NewString(),
		GuildID:     guildID,
		MemberID:    memberID,
		MemberName:  memberName,
		Action:      action,
		InviteCode:  att.Code,
		InviterID:   att.InviterID,
		InviterName: att.InviterName,
		Timestamp:   time.Now().UTC(),
	}
	if err := t.journal.SaveMemberEvent(event); err != nil {
		t.log.Error("failed to save member event",
			sl.Guild(guildID), sl.User(memberID), sl.Err(err))
	}
}

// notePermissionDenied logs the denial once per occurrence; repeat arrivals
// in the denied state stay quiet until access is restored.
func (t *Tracker) notePermissionDenied(guildID string) {
	t.mu.Lock()
	first := !t.denied[guildID]
	t.denied[guildID] = true
	t.mu.Unlock()
	if first {
		t.log.Warn("no permission to list invites, attribution suspended", sl.Guild(guildID))
	}
}

func (t *Tracker) clearPermissionDenied(guildID string) {
	t.mu.Lock()
	wasDenied := t.denied[guildID]
	delete(t.denied, guildID)
	t.mu.Unlock()
	if wasDenied {
		t.log.Info("invite access restored", sl.Guild(guildID))
	}
}

func snapshotOf(invites []entity.Invite) entity.Snapshot {
	snap := make(entity.Snapshot, len(invites))
	for _, inv := range invites {
		snap[inv.Code] = inv
	}
	return snap
}
