package tracker

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"guildsync/entity"
	"sync"
)

// tombstoneCap bounds how many recent deletions are remembered per guild.
// If a tombstone ages out while a fetch is still on the wire, a deleted code
// can reappear until the next refresh corrects it.
const tombstoneCap = 128

// record pairs a cached invite with the store generation that wrote it.
type record struct {
	invite entity.Invite
	gen    uint64
}

type bucket struct {
	invites    map[string]record
	gen        uint64
	tombstones *lru.Cache[string, uint64]
}

func newBucket() *bucket {
	tombstones, _ := lru.New[string, uint64](tombstoneCap) // errors only on non-positive size
	return &bucket{
		invites:    make(map[string]record),
		tombstones: tombstones,
	}
}

// Store holds the last-known invite state per guild. Every write ticks the
// guild generation; View reports it so a later Commit can tell which
// notifications completed while the fetch it merges was in flight.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

func NewStore() *Store {
	return &Store{buckets: make(map[string]*bucket)}
}

// bucket returns the guild bucket, creating it on first touch.
// Callers hold the write lock.
func (s *Store) bucket(guildID string) *bucket {
	b, ok := s.buckets[guildID]
	if !ok {
		b = newBucket()
		s.buckets[guildID] = b
	}
	return b
}

// View returns a copy of the guild cache and the generation it was taken at.
// A guild that was never cached yields an empty snapshot at generation zero.
func (s *Store) View(guildID string) (entity.Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[guildID]
	if !ok {
		return entity.Snapshot{}, 0
	}
	snap := make(entity.Snapshot, len(b.invites))
	for code, rec := range b.invites {
		snap[code] = rec.invite
	}
	return snap, b.gen
}

// Snapshot is View without the generation, for read-only consumers.
func (s *Store) Snapshot(guildID string) entity.Snapshot {
	snap, _ := s.View(guildID)
	return snap
}

// Upsert applies an invite-create notification. Overwriting an existing code
// is allowed; a recreated code starts over, so its tombstone is cleared.
func (s *Store) Upsert(inv entity.Invite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(inv.GuildID)
	b.gen++
	b.invites[inv.Code] = record{invite: inv, gen: b.gen}
	b.tombstones.Remove(inv.Code)
}

// Remove applies an invite-delete notification; an absent code leaves the
// cache unchanged. The deletion generation is remembered so an in-flight
// fetch that still carries the code cannot resurrect it at commit time.
func (s *Store) Remove(guildID, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(guildID)
	b.gen++
	delete(b.invites, code)
	b.tombstones.Add(code, b.gen)
}

// Commit merges a fetched snapshot into the guild cache and returns the
// resulting state. since is the generation View reported when the fetch
// began. Codes deleted after since stay deleted, codes written after since
// stay present, and when both sides carry a code the higher use count wins;
// everything else follows the fetched list.
func (s *Store) Commit(guildID string, fetched []entity.Invite, since uint64) entity.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(guildID)
	b.gen++
	commit := b.gen

	next := make(map[string]record, len(fetched))
	seen := make(map[string]bool, len(fetched))
	for _, inv := range fetched {
		seen[inv.Code] = true
		if cur, ok := b.invites[inv.Code]; ok {
			// Written after the fetch was issued, including a recreate
			// that followed a delete: the event beats the fetch.
			if cur.gen > since {
				next[inv.Code] = cur
				continue
			}
			if cur.invite.Uses > inv.Uses {
				next[inv.Code] = record{invite: cur.invite, gen: commit}
				continue
			}
			next[inv.Code] = record{invite: inv, gen: commit}
			continue
		}
		if delGen, ok := b.tombstones.Get(inv.Code); ok && delGen > since {
			continue
		}
		next[inv.Code] = record{invite: inv, gen: commit}
	}
	for code, cur := range b.invites {
		if seen[code] {
			continue
		}
		// Written after the fetch was issued: an interleaved create the
		// platform list predates. Keeps its event-time generation.
		if cur.gen > since {
			next[code] = cur
		}
	}
	b.invites = next

	snap := make(entity.Snapshot, len(next))
	for code, rec := range next {
		snap[code] = rec.invite
	}
	return snap
}

// Drop discards a guild cache entirely.
func (s *Store) Drop(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, guildID)
}
