package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSnapshot(fingerprint string) *models.Snapshot {
	return &models.Snapshot{
		FetchedAt:   time.Now(),
		SourceURL:   "https://stats.nba.com/stats/injuryreport",
		Fingerprint: fingerprint,
		Raw:         []byte(`{"players":[]}`),
	}
}

func TestInsertSnapshotIfNew_Dedup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, isNew, err := store.InsertSnapshotIfNew(ctx, testSnapshot("abc123"))
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotZero(t, id1)

	id2, isNew, err := store.InsertSnapshotIfNew(ctx, testSnapshot("abc123"))
	require.NoError(t, err)
	assert.False(t, isNew, "same fingerprint must not insert again")
	assert.Equal(t, id1, id2, "duplicate resolves to the existing snapshot")

	id3, isNew, err := store.InsertSnapshotIfNew(ctx, testSnapshot("def456"))
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEqual(t, id1, id3)
}

func TestSaveAndLatestStatuses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snapID, _, err := store.InsertSnapshotIfNew(ctx, testSnapshot("snap1"))
	require.NoError(t, err)

	statuses := []models.PlayerStatus{
		{PlayerID: "2544", Name: "LeBron James", Team: "LAL", Status: "OUT", Reason: "Injury/Illness"},
		{PlayerID: "201939", Name: "Stephen Curry", Team: "GSW", Status: "QUESTIONABLE"},
	}
	require.NoError(t, store.SaveStatuses(ctx, snapID, statuses))

	gotID, got, err := store.LatestStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapID, gotID)
	require.Len(t, got, 2)
	assert.Equal(t, "2544", got[0].PlayerID)
	assert.Equal(t, "OUT", got[0].Status)
	assert.Equal(t, "Injury/Illness", got[0].Reason)
	assert.Equal(t, "201939", got[1].PlayerID)
}

func TestLatestStatuses_Empty(t *testing.T) {
	store := newTestStore(t)

	id, statuses, err := store.LatestStatuses(context.Background())
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.Empty(t, statuses)
}

func TestGetOrCreatePlayer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.GetOrCreatePlayer(ctx, models.Player{
		NBAID: "2544", Name: "LeBron James", Team: "LAL", Rank: 3,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsTop100)

	again, err := store.GetOrCreatePlayer(ctx, models.Player{NBAID: "2544"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "LeBron James", again.Name, "existing record wins over the lookup stub")
}

func TestTopPlayers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertPlayer(ctx, models.Player{NBAID: "1", Name: "Star", Team: "LAL", Rank: 2, IsTop100: true})
	require.NoError(t, err)
	_, err = store.UpsertPlayer(ctx, models.Player{NBAID: "2", Name: "Other Star", Team: "GSW", Rank: 1, IsTop100: true})
	require.NoError(t, err)
	_, err = store.UpsertPlayer(ctx, models.Player{NBAID: "3", Name: "Bench", Team: "PHI"})
	require.NoError(t, err)

	top, err := store.TopPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "2", top[0].NBAID, "ordered by rank")
	assert.Equal(t, "1", top[1].NBAID)
}

func TestInsertChanges_DuplicateSkipped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap1, _, err := store.InsertSnapshotIfNew(ctx, testSnapshot("snap1"))
	require.NoError(t, err)
	snap2, _, err := store.InsertSnapshotIfNew(ctx, testSnapshot("snap2"))
	require.NoError(t, err)

	change := models.StatusChange{
		PlayerID: "2544", PlayerName: "LeBron James", Team: "LAL",
		OldStatus: "OUT", NewStatus: "QUESTIONABLE",
		SnapshotID: snap1, DetectedAt: time.Now(),
	}

	stored, err := store.InsertChanges(ctx, []models.StatusChange{change})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotZero(t, stored[0].ID)

	// Same player and snapshot from an overlapping run: dropped, not erred.
	stored, err = store.InsertChanges(ctx, []models.StatusChange{change})
	require.NoError(t, err)
	assert.Empty(t, stored)

	change.SnapshotID = snap2
	stored, err = store.InsertChanges(ctx, []models.StatusChange{change})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestMarkChangesDelivered_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snapID, _, err := store.InsertSnapshotIfNew(ctx, testSnapshot("snap1"))
	require.NoError(t, err)

	stored, err := store.InsertChanges(ctx, []models.StatusChange{
		{PlayerID: "1", PlayerName: "A", Team: "LAL", NewStatus: "OUT", SnapshotID: snapID, DetectedAt: time.Now()},
		{PlayerID: "2", PlayerName: "B", Team: "GSW", NewStatus: "OUT", SnapshotID: snapID, DetectedAt: time.Now()},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)

	ids := []int64{stored[0].ID, stored[1].ID}

	marked, err := store.MarkChangesDelivered(ctx, ids, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	marked, err = store.MarkChangesDelivered(ctx, ids, time.Now())
	require.NoError(t, err)
	assert.Zero(t, marked, "delivered flag flips only once")

	marked, err = store.MarkChangesDelivered(ctx, nil, time.Now())
	require.NoError(t, err)
	assert.Zero(t, marked)
}

func TestSubscribersFor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	player, err := store.GetOrCreatePlayer(ctx, models.Player{NBAID: "2544", Name: "LeBron James", Team: "LAL"})
	require.NoError(t, err)

	playerFan, err := store.CreateSubscriber(ctx, models.Subscriber{
		Email: "playerfan@example.com", Active: true, EmailEnabled: true,
	})
	require.NoError(t, err)
	teamFan, err := store.CreateSubscriber(ctx, models.Subscriber{
		Email: "teamfan@example.com", Active: true, EmailEnabled: true,
		QuietHoursStart: "22:00", QuietHoursEnd: "06:00",
	})
	require.NoError(t, err)
	inactive, err := store.CreateSubscriber(ctx, models.Subscriber{
		Email: "gone@example.com", Active: false, EmailEnabled: true,
	})
	require.NoError(t, err)
	_, err = store.CreateSubscriber(ctx, models.Subscriber{
		Email: "otherteam@example.com", Active: true, EmailEnabled: true,
	})
	require.NoError(t, err)

	emailOff := false
	_, err = store.CreateOverride(ctx, models.PreferenceOverride{
		SubscriberID: playerFan.ID, PlayerID: &player.ID, EmailEnabled: &emailOff, MinImportance: 2,
	})
	require.NoError(t, err)
	_, err = store.CreateOverride(ctx, models.PreferenceOverride{SubscriberID: teamFan.ID, Team: "LAL"})
	require.NoError(t, err)
	_, err = store.CreateOverride(ctx, models.PreferenceOverride{SubscriberID: inactive.ID, Team: "LAL"})
	require.NoError(t, err)

	subs, err := store.SubscribersFor(ctx, player.ID, "LAL")
	require.NoError(t, err)
	require.Len(t, subs, 2, "inactive and unrelated subscribers are excluded")

	assert.Equal(t, "playerfan@example.com", subs[0].Email)
	require.Len(t, subs[0].Overrides, 1)
	require.NotNil(t, subs[0].Overrides[0].PlayerID)
	assert.Equal(t, player.ID, *subs[0].Overrides[0].PlayerID)
	require.NotNil(t, subs[0].Overrides[0].EmailEnabled)
	assert.False(t, *subs[0].Overrides[0].EmailEnabled)
	assert.Equal(t, 2, subs[0].Overrides[0].MinImportance)
	assert.Nil(t, subs[0].Overrides[0].PushEnabled, "undefined flags stay nil")

	assert.Equal(t, "teamfan@example.com", subs[1].Email)
	assert.Equal(t, "22:00", subs[1].QuietHoursStart)
}
