package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and applies
// the schema migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	store := &SQLiteStore{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	logrus.Infof("Opened SQLite database at %s", path)
	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(schema))
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertSnapshotIfNew relies on the UNIQUE fingerprint index: concurrent
// callers fetching identical content race on the same row and only one wins.
func (s *SQLiteStore) InsertSnapshotIfNew(ctx context.Context, snap *models.Snapshot) (int64, bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots(fetched_at, source_url, fingerprint, raw_content)
		 VALUES(?,?,?,?) ON CONFLICT(fingerprint) DO NOTHING`,
		snap.FetchedAt.Format(time.RFC3339Nano), snap.SourceURL, snap.Fingerprint, snap.Raw,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert snapshot: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}

	if affected == 0 {
		var id int64
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM snapshots WHERE fingerprint = ?`, snap.Fingerprint).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("lookup duplicate snapshot: %w", err)
		}
		return id, false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *SQLiteStore) SaveStatuses(ctx context.Context, snapshotID int64, statuses []models.PlayerStatus) error {
	if len(statuses) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, st := range statuses {
		player, err := getOrCreatePlayerTx(ctx, tx, models.Player{
			NBAID: st.PlayerID,
			Name:  st.Name,
			Team:  st.Team,
			Rank:  st.Rank,
		})
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO statuses(snapshot_id, player_id, status, reason, details, game_date, opponent, is_change, previous_status)
			 VALUES(?,?,?,?,?,?,?,?,?)`,
			snapshotID, player.ID, st.Status, nullStr(st.Reason), nullStr(st.Details),
			nullStr(st.GameDate), nullStr(st.Opponent), st.IsChange, nullStr(st.PreviousStatus),
		)
		if err != nil {
			return fmt.Errorf("insert status for player %s: %w", st.PlayerID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LatestStatuses(ctx context.Context) (int64, []models.PlayerStatus, error) {
	var snapshotID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot_id FROM statuses ORDER BY snapshot_id DESC LIMIT 1`).Scan(&snapshotID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.nba_id, p.name, p.team, COALESCE(p.rank, 0),
		        st.status, COALESCE(st.reason, ''), COALESCE(st.details, ''),
		        COALESCE(st.game_date, ''), COALESCE(st.opponent, '')
		 FROM statuses st JOIN players p ON p.id = st.player_id
		 WHERE st.snapshot_id = ? ORDER BY st.id`, snapshotID)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var statuses []models.PlayerStatus
	for rows.Next() {
		var st models.PlayerStatus
		if err := rows.Scan(&st.PlayerID, &st.Name, &st.Team, &st.Rank,
			&st.Status, &st.Reason, &st.Details, &st.GameDate, &st.Opponent); err != nil {
			return 0, nil, err
		}
		statuses = append(statuses, st)
	}
	return snapshotID, statuses, rows.Err()
}

func (s *SQLiteStore) GetOrCreatePlayer(ctx context.Context, p models.Player) (models.Player, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Player{}, err
	}
	defer tx.Rollback()

	player, err := getOrCreatePlayerTx(ctx, tx, p)
	if err != nil {
		return models.Player{}, err
	}
	return player, tx.Commit()
}

func getOrCreatePlayerTx(ctx context.Context, tx *sql.Tx, p models.Player) (models.Player, error) {
	var out models.Player
	var rank sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT id, nba_id, name, team, rank, is_top_100 FROM players WHERE nba_id = ?`, p.NBAID).
		Scan(&out.ID, &out.NBAID, &out.Name, &out.Team, &rank, &out.IsTop100)
	if err == nil {
		if rank.Valid {
			out.Rank = int(rank.Int64)
		}
		return out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Player{}, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO players(nba_id, name, team, rank, is_top_100) VALUES(?,?,?,?,?)`,
		p.NBAID, p.Name, p.Team, nullRank(p.Rank), p.Rank > 0 && p.Rank <= 100,
	)
	if err != nil {
		return models.Player{}, fmt.Errorf("create player %s: %w", p.NBAID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Player{}, err
	}

	p.ID = id
	p.IsTop100 = p.Rank > 0 && p.Rank <= 100
	return p, nil
}

func (s *SQLiteStore) UpsertPlayer(ctx context.Context, p models.Player) (models.Player, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players(nba_id, name, team, rank, is_top_100) VALUES(?,?,?,?,?)
		 ON CONFLICT(nba_id) DO UPDATE SET
		   name = excluded.name, team = excluded.team,
		   rank = excluded.rank, is_top_100 = excluded.is_top_100`,
		p.NBAID, p.Name, p.Team, nullRank(p.Rank), p.IsTop100,
	)
	if err != nil {
		return models.Player{}, fmt.Errorf("upsert player %s: %w", p.NBAID, err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT id FROM players WHERE nba_id = ?`, p.NBAID).Scan(&p.ID)
	return p, err
}

func (s *SQLiteStore) TopPlayers(ctx context.Context) ([]models.Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nba_id, name, team, COALESCE(rank, 0), is_top_100
		 FROM players WHERE is_top_100 = 1 ORDER BY rank`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.NBAID, &p.Name, &p.Team, &p.Rank, &p.IsTop100); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// InsertChanges keeps at most one change per (player, snapshot); a change
// already recorded by an overlapping run is silently skipped.
func (s *SQLiteStore) InsertChanges(ctx context.Context, changes []models.StatusChange) ([]models.StatusChange, error) {
	if len(changes) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var stored []models.StatusChange
	for _, ch := range changes {
		player, err := getOrCreatePlayerTx(ctx, tx, models.Player{
			NBAID: ch.PlayerID,
			Name:  ch.PlayerName,
			Team:  ch.Team,
			Rank:  ch.Rank,
		})
		if err != nil {
			return nil, err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO changes(player_id, old_status, new_status, reason, details, detected_at, snapshot_id, delivered)
			 VALUES(?,?,?,?,?,?,?,0)
			 ON CONFLICT(player_id, snapshot_id) DO NOTHING`,
			player.ID, nullStr(ch.OldStatus), ch.NewStatus, nullStr(ch.Reason), nullStr(ch.Details),
			ch.DetectedAt.Format(time.RFC3339Nano), ch.SnapshotID,
		)
		if err != nil {
			return nil, fmt.Errorf("insert change for player %s: %w", ch.PlayerID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			continue
		}

		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ch.ID = id
		stored = append(stored, ch)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

// MarkChangesDelivered is the idempotency guard: the WHERE delivered = 0
// predicate makes the false→true transition happen at most once per change.
func (s *SQLiteStore) MarkChangesDelivered(ctx context.Context, ids []int64, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, at.Format(time.RFC3339Nano))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE changes SET delivered = 1, delivered_at = ?
		             WHERE delivered = 0 AND id IN (%s)`, strings.Join(placeholders, ",")),
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("mark changes delivered: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) SubscribersFor(ctx context.Context, playerID int64, team string) ([]models.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT s.id, s.email, s.active, s.email_enabled, s.push_enabled, s.webhook_enabled,
		        COALESCE(s.push_token, ''), COALESCE(s.webhook_url, ''),
		        COALESCE(s.quiet_hours_start, ''), COALESCE(s.quiet_hours_end, '')
		 FROM subscribers s
		 JOIN overrides o ON o.subscriber_id = s.id
		 WHERE s.active = 1 AND (o.player_id = ? OR (o.team IS NOT NULL AND o.team = ?))
		 ORDER BY s.id`, playerID, team)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscriber
	for rows.Next() {
		var sub models.Subscriber
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.Active,
			&sub.EmailEnabled, &sub.PushEnabled, &sub.WebhookEnabled,
			&sub.PushToken, &sub.WebhookURL,
			&sub.QuietHoursStart, &sub.QuietHoursEnd); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range subs {
		overrides, err := s.overridesFor(ctx, subs[i].ID)
		if err != nil {
			return nil, err
		}
		subs[i].Overrides = overrides
	}
	return subs, nil
}

func (s *SQLiteStore) overridesFor(ctx context.Context, subscriberID int64) ([]models.PreferenceOverride, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subscriber_id, player_id, COALESCE(team, ''),
		        email_enabled, push_enabled, webhook_enabled, min_importance
		 FROM overrides WHERE subscriber_id = ? ORDER BY id`, subscriberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []models.PreferenceOverride
	for rows.Next() {
		var o models.PreferenceOverride
		var playerID sql.NullInt64
		var email, push, webhook sql.NullBool
		if err := rows.Scan(&o.ID, &o.SubscriberID, &playerID, &o.Team,
			&email, &push, &webhook, &o.MinImportance); err != nil {
			return nil, err
		}
		if playerID.Valid {
			o.PlayerID = &playerID.Int64
		}
		o.EmailEnabled = nullableBool(email)
		o.PushEnabled = nullableBool(push)
		o.WebhookEnabled = nullableBool(webhook)
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func (s *SQLiteStore) CreateSubscriber(ctx context.Context, sub models.Subscriber) (models.Subscriber, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscribers(email, active, email_enabled, push_enabled, webhook_enabled,
		                         push_token, webhook_url, quiet_hours_start, quiet_hours_end)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		sub.Email, sub.Active, sub.EmailEnabled, sub.PushEnabled, sub.WebhookEnabled,
		nullStr(sub.PushToken), nullStr(sub.WebhookURL),
		nullStr(sub.QuietHoursStart), nullStr(sub.QuietHoursEnd),
	)
	if err != nil {
		return models.Subscriber{}, fmt.Errorf("create subscriber: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Subscriber{}, err
	}
	sub.ID = id
	return sub, nil
}

func (s *SQLiteStore) CreateOverride(ctx context.Context, o models.PreferenceOverride) (models.PreferenceOverride, error) {
	var playerID interface{}
	if o.PlayerID != nil {
		playerID = *o.PlayerID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO overrides(subscriber_id, player_id, team, email_enabled, push_enabled, webhook_enabled, min_importance)
		 VALUES(?,?,?,?,?,?,?)`,
		o.SubscriberID, playerID, nullStr(o.Team),
		nullableBoolArg(o.EmailEnabled), nullableBoolArg(o.PushEnabled), nullableBoolArg(o.WebhookEnabled),
		o.MinImportance,
	)
	if err != nil {
		return models.PreferenceOverride{}, fmt.Errorf("create override: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.PreferenceOverride{}, err
	}
	o.ID = id
	return o, nil
}

func nullStr(v string) interface{} {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullRank(rank int) interface{} {
	if rank <= 0 {
		return nil
	}
	return rank
}

func nullableBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func nullableBoolArg(v *bool) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
