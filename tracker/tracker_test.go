package tracker

import (
	"context"
	"fmt"
	"guildsync/entity"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu      sync.Mutex
	invites []entity.Invite
	err     error
	calls   int
	onFetch func()
}

func (f *fakeFetcher) GuildInvites(_ context.Context, _ string) ([]entity.Invite, error) {
	f.mu.Lock()
	f.calls++
	invites := append([]entity.Invite(nil), f.invites...)
	err := f.err
	onFetch := f.onFetch
	f.mu.Unlock()

	// Simulates notifications completing while the fetch is on the wire.
	if onFetch != nil {
		onFetch()
	}
	if err != nil {
		return nil, err
	}
	return invites, nil
}

func (f *fakeFetcher) serve(invites ...entity.Invite) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites = invites
	f.err = nil
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeJournal struct {
	mu     sync.Mutex
	events []entity.MemberEvent
	err    error
}

func (j *fakeJournal) SaveMemberEvent(event *entity.MemberEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.events = append(j.events, *event)
	return nil
}

func (j *fakeJournal) all() []entity.MemberEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]entity.MemberEvent(nil), j.events...)
}

type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) count(level slog.Level, msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level && r.Message == msg {
			n++
		}
	}
	return n
}

func newTestTracker(t *testing.T) (*Tracker, *fakeFetcher, *fakeJournal) {
	t.Helper()
	fetcher := &fakeFetcher{}
	journal := &fakeJournal{}
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), fetcher, journal), fetcher, journal
}

func TestTrackerEndToEndAttribution(t *testing.T) {
	trk, fetcher, journal := newTestTracker(t)
	ctx := context.Background()

	fetcher.serve(testInvite("WELCOME1", 5, baseTime))
	require.NoError(t, trk.Seed(ctx, "guild-1"))

	trk.InviteCreated(testInvite("BONUS2", 0, baseTime.Add(time.Hour)))

	fetcher.serve(
		testInvite("WELCOME1", 6, baseTime),
		testInvite("BONUS2", 0, baseTime.Add(time.Hour)),
	)
	att, err := trk.MemberJoined(ctx, "guild-1", "member-9", "newcomer")
	require.NoError(t, err)

	assert.Equal(t, "WELCOME1", att.Code)
	assert.Equal(t, "inviter-WELCOME1", att.InviterID)
	assert.Equal(t, 1, att.Delta)

	snap := trk.Snapshot("guild-1")
	require.Len(t, snap, 2)
	assert.Equal(t, 6, snap["WELCOME1"].Uses)
	assert.Equal(t, 0, snap["BONUS2"].Uses)

	events := journal.all()
	require.Len(t, events, 1)
	assert.Equal(t, entity.ActionJoin, events[0].Action)
	assert.Equal(t, "member-9", events[0].MemberID)
	assert.Equal(t, "WELCOME1", events[0].InviteCode)
	assert.Equal(t, "inviter-WELCOME1", events[0].InviterID)
	assert.NotEmpty(t, events[0].EventID)
}

func TestTrackerTransientFetchFailure(t *testing.T) {
	trk, fetcher, journal := newTestTracker(t)
	ctx := context.Background()

	fetcher.serve(testInvite("STABLE", 3, baseTime))
	require.NoError(t, trk.Seed(ctx, "guild-1"))

	fetcher.fail(fmt.Errorf("gateway: connection reset"))
	att, err := trk.MemberJoined(ctx, "guild-1", "member-1", "luckless")
	require.NoError(t, err)
	assert.False(t, att.Attributed())

	// Nothing was committed from the failed fetch.
	snap := trk.Snapshot("guild-1")
	require.Len(t, snap, 1)
	assert.Equal(t, 3, snap["STABLE"].Uses)

	// The join itself is still journaled, without an inviter.
	events := journal.all()
	require.Len(t, events, 1)
	assert.Equal(t, entity.ActionJoin, events[0].Action)
	assert.Empty(t, events[0].InviterID)
	assert.Empty(t, events[0].InviteCode)

	assert.Equal(t, 2, fetcher.calls, "no synchronous retry after a failed fetch")
}

func TestTrackerPermissionDeniedLoggedOnce(t *testing.T) {
	handler := &recordingHandler{}
	fetcher := &fakeFetcher{}
	journal := &fakeJournal{}
	trk := New(slog.New(handler), fetcher, journal)
	ctx := context.Background()

	fetcher.fail(fmt.Errorf("list invites: %w", ErrPermissionDenied))
	for i := 0; i < 3; i++ {
		att, err := trk.MemberJoined(ctx, "guild-1", fmt.Sprintf("member-%d", i), "m")
		require.NoError(t, err)
		assert.False(t, att.Attributed())
	}
	assert.Equal(t, 1, handler.count(slog.LevelWarn, "no permission to list invites, attribution suspended"))

	// Permissions restored: the latch clears and attribution works again.
	fetcher.serve(testInvite("BACK", 1, baseTime))
	att, err := trk.MemberJoined(ctx, "guild-1", "member-9", "m")
	require.NoError(t, err)
	assert.Equal(t, "BACK", att.Code)
	assert.Equal(t, 1, handler.count(slog.LevelInfo, "invite access restored"))
}

func TestTrackerMalformedSnapshotAborts(t *testing.T) {
	trk, fetcher, journal := newTestTracker(t)
	ctx := context.Background()

	fetcher.serve(testInvite("SANE", 2, baseTime))
	require.NoError(t, trk.Seed(ctx, "guild-1"))

	fetcher.serve(entity.Invite{Code: "SANE", GuildID: "guild-1", Uses: -4, CreatedAt: baseTime})
	att, err := trk.MemberJoined(ctx, "guild-1", "member-1", "m")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
	assert.False(t, att.Attributed())

	// The aborted cycle journals nothing and commits nothing.
	assert.Empty(t, journal.all())
	snap := trk.Snapshot("guild-1")
	assert.Equal(t, 2, snap["SANE"].Uses)
}

func TestTrackerInterleavedDeleteNotResurrected(t *testing.T) {
	trk, fetcher, _ := newTestTracker(t)
	ctx := context.Background()

	fetcher.serve(
		testInvite("KEEP", 1, baseTime),
		testInvite("DOOMED", 0, baseTime),
	)
	require.NoError(t, trk.Seed(ctx, "guild-1"))

	// The arrival's fetch still lists DOOMED; its delete notification
	// completes while that fetch is in flight.
	fetcher.mu.Lock()
	fetcher.invites = []entity.Invite{
		testInvite("KEEP", 2, baseTime),
		testInvite("DOOMED", 0, baseTime),
	}
	fetcher.onFetch = func() { trk.InviteDeleted("guild-1", "DOOMED") }
	fetcher.mu.Unlock()

	att, err := trk.MemberJoined(ctx, "guild-1", "member-1", "m")
	require.NoError(t, err)
	assert.Equal(t, "KEEP", att.Code)

	snap := trk.Snapshot("guild-1")
	assert.NotContains(t, snap, "DOOMED")
	assert.Equal(t, 2, snap["KEEP"].Uses)
}

func TestTrackerInterleavedCreateSurvivesCommit(t *testing.T) {
	trk, fetcher, _ := newTestTracker(t)
	ctx := context.Background()

	fetcher.serve(testInvite("FIRST", 0, baseTime))
	require.NoError(t, trk.Seed(ctx, "guild-1"))

	fetcher.mu.Lock()
	fetcher.invites = []entity.Invite{testInvite("FIRST", 1, baseTime)}
	fetcher.onFetch = func() { trk.InviteCreated(testInvite("SECOND", 0, baseTime.Add(time.Minute))) }
	fetcher.mu.Unlock()

	att, err := trk.MemberJoined(ctx, "guild-1", "member-1", "m")
	require.NoError(t, err)
	assert.Equal(t, "FIRST", att.Code)

	snap := trk.Snapshot("guild-1")
	require.Len(t, snap, 2)
	assert.Contains(t, snap, "SECOND")
}

func TestTrackerSeedToleratesPermissionDenied(t *testing.T) {
	trk, fetcher, _ := newTestTracker(t)

	fetcher.fail(ErrPermissionDenied)
	require.NoError(t, trk.Seed(context.Background(), "guild-1"))
	assert.Empty(t, trk.Snapshot("guild-1"))
}

func TestTrackerSeedPropagatesTransientFailure(t *testing.T) {
	trk, fetcher, _ := newTestTracker(t)

	fetcher.fail(fmt.Errorf("gateway: timeout"))
	err := trk.Seed(context.Background(), "guild-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
}

func TestTrackerForgetDiscardsCache(t *testing.T) {
	trk, fetcher, _ := newTestTracker(t)
	ctx := context.Background()

	fetcher.serve(testInvite("CODE1", 1, baseTime))
	require.NoError(t, trk.Seed(ctx, "guild-1"))
	require.NotEmpty(t, trk.Snapshot("guild-1"))

	trk.Forget("guild-1")
	assert.Empty(t, trk.Snapshot("guild-1"))
}

func TestTrackerRefreshCommitsLiveList(t *testing.T) {
	trk, fetcher, _ := newTestTracker(t)
	ctx := context.Background()

	fetcher.serve(testInvite("CODE1", 1, baseTime))
	require.NoError(t, trk.Seed(ctx, "guild-1"))

	fetcher.serve(
		testInvite("CODE1", 4, baseTime),
		testInvite("CODE2", 0, baseTime.Add(time.Hour)),
	)
	snap, err := trk.Refresh(ctx, "guild-1")
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, 4, snap["CODE1"].Uses)

	// The refreshed state is the new cache, not a one-off view.
	assert.Equal(t, 4, trk.Snapshot("guild-1")["CODE1"].Uses)
}

func TestTrackerRefreshFallsBackToCache(t *testing.T) {
	trk, fetcher, _ := newTestTracker(t)
	ctx := context.Background()

	fetcher.serve(testInvite("CODE1", 2, baseTime))
	require.NoError(t, trk.Seed(ctx, "guild-1"))

	fetcher.fail(fmt.Errorf("gateway: timeout"))
	snap, err := trk.Refresh(ctx, "guild-1")
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, 2, snap["CODE1"].Uses)
}

func TestTrackerRefreshRejectsMalformedList(t *testing.T) {
	trk, fetcher, _ := newTestTracker(t)
	ctx := context.Background()

	fetcher.serve(testInvite("CODE1", 2, baseTime))
	require.NoError(t, trk.Seed(ctx, "guild-1"))

	fetcher.serve(entity.Invite{Code: "CODE1", GuildID: "guild-1", Uses: -1, CreatedAt: baseTime})
	_, err := trk.Refresh(ctx, "guild-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
	assert.Equal(t, 2, trk.Snapshot("guild-1")["CODE1"].Uses)
}

func TestTrackerMemberLeftJournaled(t *testing.T) {
	trk, _, journal := newTestTracker(t)

	trk.MemberLeft("guild-1", "member-2", "leaver")

	events := journal.all()
	require.Len(t, events, 1)
	assert.Equal(t, entity.ActionLeave, events[0].Action)
	assert.Equal(t, "member-2", events[0].MemberID)
	assert.Empty(t, events[0].InviteCode)
}

func TestTrackerNilJournal(t *testing.T) {
	fetcher := &fakeFetcher{}
	trk := New(slog.New(slog.NewTextHandler(io.Discard, nil)), fetcher, nil)

	fetcher.serve(testInvite("CODE1", 1, baseTime))
	att, err := trk.MemberJoined(context.Background(), "guild-1", "member-1", "m")
	require.NoError(t, err)
	assert.Equal(t, "CODE1", att.Code)
}
