package tracker

import (
	"guildsync/entity"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testInvite(code string, uses int, created time.Time) entity.Invite {
	return entity.Invite{
		Code:        code,
		GuildID:     "guild-1",
		InviterID:   "inviter-" + code,
		InviterName: "Inviter " + code,
		Uses:        uses,
		CreatedAt:   created,
	}
}

func snapshotFrom(invites ...entity.Invite) entity.Snapshot {
	snap := make(entity.Snapshot, len(invites))
	for _, inv := range invites {
		snap[inv.Code] = inv
	}
	return snap
}

func TestAttribute(t *testing.T) {
	tests := []struct {
		name     string
		prev     entity.Snapshot
		fresh    entity.Snapshot
		wantCode string
	}{
		{
			name:     "single incremented invite is selected",
			prev:     snapshotFrom(testInvite("WELCOME1", 3, baseTime)),
			fresh:    snapshotFrom(testInvite("WELCOME1", 4, baseTime), testInvite("BONUS2", 0, baseTime)),
			wantCode: "WELCOME1",
		},
		{
			name:     "no counter movement means unknown",
			prev:     snapshotFrom(testInvite("WELCOME1", 3, baseTime)),
			fresh:    snapshotFrom(testInvite("WELCOME1", 3, baseTime), testInvite("BONUS2", 0, baseTime)),
			wantCode: "",
		},
		{
			name:     "used-then-deleted invite cannot be reconstructed",
			prev:     snapshotFrom(testInvite("ONCE", 0, baseTime)),
			fresh:    entity.Snapshot{},
			wantCode: "",
		},
		{
			name:     "invite created and used between snapshots counts from zero",
			prev:     entity.Snapshot{},
			fresh:    snapshotFrom(testInvite("NEW1", 2, baseTime)),
			wantCode: "NEW1",
		},
		{
			name:     "largest delta wins under concurrent joins",
			prev:     snapshotFrom(testInvite("SLOW", 1, baseTime), testInvite("BUSY", 1, baseTime)),
			fresh:    snapshotFrom(testInvite("SLOW", 2, baseTime), testInvite("BUSY", 4, baseTime)),
			wantCode: "BUSY",
		},
		{
			name: "equal delta falls back to newest invite",
			prev: snapshotFrom(
				testInvite("OLD", 1, baseTime),
				testInvite("FRESH", 1, baseTime.Add(time.Hour)),
			),
			fresh: snapshotFrom(
				testInvite("OLD", 2, baseTime),
				testInvite("FRESH", 2, baseTime.Add(time.Hour)),
			),
			wantCode: "FRESH",
		},
		{
			name:     "both snapshots empty",
			prev:     entity.Snapshot{},
			fresh:    entity.Snapshot{},
			wantCode: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att, err := Attribute(tt.prev, tt.fresh)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, att.Code)
			assert.Equal(t, tt.wantCode != "", att.Attributed())
			if att.Attributed() {
				assert.Equal(t, "inviter-"+tt.wantCode, att.InviterID)
				assert.Positive(t, att.Delta)
			}
		})
	}
}

func TestAttributeDelta(t *testing.T) {
	prev := snapshotFrom(testInvite("A", 5, baseTime))
	fresh := snapshotFrom(testInvite("A", 8, baseTime))

	att, err := Attribute(prev, fresh)
	require.NoError(t, err)
	assert.Equal(t, "A", att.Code)
	assert.Equal(t, 3, att.Delta)
	assert.Equal(t, 8, att.Uses)
}

func TestAttributeAnonymousInviter(t *testing.T) {
	anon := entity.Invite{Code: "WIDGET", GuildID: "guild-1", Uses: 1, CreatedAt: baseTime}

	att, err := Attribute(entity.Snapshot{}, snapshotFrom(anon))
	require.NoError(t, err)
	assert.True(t, att.Attributed())
	assert.True(t, att.Anonymous())
	assert.Empty(t, att.InviterID)
}

func TestAttributeDeterministicTieBreak(t *testing.T) {
	// Same delta, same creation time: only the code orders the candidates,
	// so map iteration order must never leak into the result.
	prev := snapshotFrom(
		testInvite("ZETA", 1, baseTime),
		testInvite("ALPHA", 1, baseTime),
		testInvite("MIKE", 1, baseTime),
	)
	fresh := snapshotFrom(
		testInvite("ZETA", 2, baseTime),
		testInvite("ALPHA", 2, baseTime),
		testInvite("MIKE", 2, baseTime),
	)

	for i := 0; i < 100; i++ {
		att, err := Attribute(prev, fresh)
		require.NoError(t, err)
		assert.Equal(t, "ALPHA", att.Code)
	}
}

func TestAttributeMalformedSnapshots(t *testing.T) {
	negative := entity.Invite{Code: "BAD", GuildID: "guild-1", Uses: -2, CreatedAt: baseTime}
	blank := entity.Invite{GuildID: "guild-1", Uses: 1, CreatedAt: baseTime}

	_, err := Attribute(entity.Snapshot{}, snapshotFrom(negative))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)

	_, err = Attribute(snapshotFrom(blank), entity.Snapshot{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestBuildOverview(t *testing.T) {
	snap := snapshotFrom(
		testInvite("LOW", 1, baseTime),
		testInvite("HIGH", 8, baseTime),
		testInvite("ALSO", 8, baseTime),
	)

	overview := BuildOverview(snap)
	require.Len(t, overview.Invites, 3)
	assert.Equal(t, "ALSO", overview.Invites[0].Code)
	assert.Equal(t, "HIGH", overview.Invites[1].Code)
	assert.Equal(t, "LOW", overview.Invites[2].Code)
	assert.Len(t, overview.Inviters, 3)
}

func TestAggregateByInviter(t *testing.T) {
	one := testInvite("ONE", 4, baseTime)
	two := testInvite("TWO", 1, baseTime)
	alsoOne := entity.Invite{
		Code:        "ONE-B",
		GuildID:     "guild-1",
		InviterID:   one.InviterID,
		InviterName: one.InviterName,
		Uses:        2,
		CreatedAt:   baseTime,
	}
	anon := entity.Invite{Code: "WIDGET", GuildID: "guild-1", Uses: 9, CreatedAt: baseTime}

	stats := AggregateByInviter(snapshotFrom(one, two, alsoOne, anon))
	require.Len(t, stats, 3)

	assert.Equal(t, "", stats[0].InviterID)
	assert.Equal(t, 9, stats[0].TotalUses)

	assert.Equal(t, one.InviterID, stats[1].InviterID)
	assert.Equal(t, 2, stats[1].Invites)
	assert.Equal(t, 6, stats[1].TotalUses)

	assert.Equal(t, two.InviterID, stats[2].InviterID)
	assert.Equal(t, 1, stats[2].TotalUses)
}
