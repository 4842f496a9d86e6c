package tracker

import (
	"fmt"
	"guildsync/entity"
	"sort"
)

// Attribute decides which invite admitted the newest member by diffing the
// previously cached snapshot against a freshly fetched one. A code whose use
// count grew is a candidate; a code present only in the fresh snapshot
// counts from zero. One candidate wins outright. Several candidates resolve
// by largest delta, then newest invite, then smallest code in byte order, so
// identical inputs always produce identical output. No candidate means the
// join stays unattributed, which is a normal outcome, not an error: the only
// error is a malformed input snapshot.
func Attribute(prev, fresh entity.Snapshot) (entity.Attribution, error) {
	for _, inv := range prev {
		if err := inv.Validate(); err != nil {
			return entity.Attribution{}, fmt.Errorf("%w: cached: %v", ErrMalformedSnapshot, err)
		}
	}

	type candidate struct {
		invite entity.Invite
		delta  int
	}
	var candidates []candidate
	for code, inv := range fresh {
		if err := inv.Validate(); err != nil {
			return entity.Attribution{}, fmt.Errorf("%w: fetched: %v", ErrMalformedSnapshot, err)
		}
		base := 0
		if old, ok := prev[code]; ok {
			base = old.Uses
		}
		if delta := inv.Uses - base; delta > 0 {
			candidates = append(candidates, candidate{invite: inv, delta: delta})
		}
	}
	if len(candidates) == 0 {
		return entity.Attribution{}, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.delta != b.delta {
			return a.delta > b.delta
		}
		if !a.invite.CreatedAt.Equal(b.invite.CreatedAt) {
			return a.invite.CreatedAt.After(b.invite.CreatedAt)
		}
		return a.invite.Code < b.invite.Code
	})

	best := candidates[0]
	return entity.Attribution{
		Code:        best.invite.Code,
		InviterID:   best.invite.InviterID,
		InviterName: best.invite.InviterName,
		Uses:        best.invite.Uses,
		Delta:       best.delta,
	}, nil
}

// InviterStats aggregates a snapshot by inviter for leaderboards.
type InviterStats struct {
	InviterID   string `json:"inviter_id"`
	InviterName string `json:"inviter_name"`
	Invites     int    `json:"invites"`
	TotalUses   int    `json:"total_uses"`
}

// Overview is the dashboard's view of one guild: every live invite plus the
// per-inviter rollup.
type Overview struct {
	Invites  []entity.Invite `json:"invites"`
	Inviters []InviterStats  `json:"inviters"`
}

// BuildOverview flattens a snapshot into an Overview. Invites order by uses,
// then code, so repeated calls over the same snapshot render identically.
func BuildOverview(snap entity.Snapshot) Overview {
	invites := make([]entity.Invite, 0, len(snap))
	for _, inv := range snap {
		invites = append(invites, inv)
	}
	sort.Slice(invites, func(i, j int) bool {
		a, b := invites[i], invites[j]
		if a.Uses != b.Uses {
			return a.Uses > b.Uses
		}
		return a.Code < b.Code
	})
	return Overview{Invites: invites, Inviters: AggregateByInviter(snap)}
}

// AggregateByInviter groups a snapshot's invites per creator, ordered by
// total uses, then invite count, then inviter id. Invites without a creator
// share one bucket with an empty id.
func AggregateByInviter(snap entity.Snapshot) []InviterStats {
	byInviter := make(map[string]*InviterStats)
	for _, inv := range snap {
		st, ok := byInviter[inv.InviterID]
		if !ok {
			st = &InviterStats{InviterID: inv.InviterID, InviterName: inv.InviterName}
			byInviter[inv.InviterID] = st
		}
		st.Invites++
		st.TotalUses += inv.Uses
		if st.InviterName == "" {
			st.InviterName = inv.InviterName
		}
	}

	result := make([]InviterStats, 0, len(byInviter))
	for _, st := range byInviter {
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.TotalUses != b.TotalUses {
			return a.TotalUses > b.TotalUses
		}
		if a.Invites != b.Invites {
			return a.Invites > b.Invites
		}
		return a.InviterID < b.InviterID
	})
	return result
}
