package storage

import (
	"context"
	"time"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
)

// Store defines the persistence contract the pipeline depends on. The two
// operations with transactional semantics against concurrent pipeline runs
// are InsertSnapshotIfNew (fingerprint uniqueness) and MarkChangesDelivered
// (the delivered flag flips false→true exactly once).
type Store interface {
	// InsertSnapshotIfNew persists the snapshot unless one with the same
	// fingerprint already exists. Returns the snapshot id and whether the
	// content was new.
	InsertSnapshotIfNew(ctx context.Context, snap *models.Snapshot) (int64, bool, error)

	// SaveStatuses records the normalized per-player statuses of a snapshot,
	// lazily creating unknown players.
	SaveStatuses(ctx context.Context, snapshotID int64, statuses []models.PlayerStatus) error

	// LatestStatuses returns the statuses of the most recent snapshot that
	// has any, so a restarted process can resume diffing. The returned id is
	// zero when nothing is stored yet.
	LatestStatuses(ctx context.Context) (int64, []models.PlayerStatus, error)

	// GetOrCreatePlayer looks a player up by external NBA id, creating a
	// minimal record when absent.
	GetOrCreatePlayer(ctx context.Context, p models.Player) (models.Player, error)

	// UpsertPlayer creates or refreshes a player's display and ranking data.
	UpsertPlayer(ctx context.Context, p models.Player) (models.Player, error)

	// TopPlayers returns the ranked priority players.
	TopPlayers(ctx context.Context) ([]models.Player, error)

	// InsertChanges persists detected changes with delivered=false, assigning
	// ids. At most one change per (player, snapshot) is kept; duplicates from
	// overlapping runs are dropped, not erred.
	InsertChanges(ctx context.Context, changes []models.StatusChange) ([]models.StatusChange, error)

	// MarkChangesDelivered flips delivered to true with the given timestamp
	// for every listed change that has not been delivered yet, and reports
	// how many rows actually transitioned.
	MarkChangesDelivered(ctx context.Context, ids []int64, at time.Time) (int64, error)

	// SubscribersFor returns active subscribers holding a player- or
	// team-scoped preference override matching the change, with all of their
	// overrides attached.
	SubscribersFor(ctx context.Context, playerID int64, team string) ([]models.Subscriber, error)

	// CreateSubscriber and CreateOverride exist for the surrounding
	// application and tooling; the pipeline itself only reads subscribers.
	CreateSubscriber(ctx context.Context, s models.Subscriber) (models.Subscriber, error)
	CreateOverride(ctx context.Context, o models.PreferenceOverride) (models.PreferenceOverride, error)

	Close() error
}
