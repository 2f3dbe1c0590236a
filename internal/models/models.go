package models

import "time"

// Channel names used across the router, dispatcher and senders.
const (
	ChannelEmail   = "email"
	ChannelPush    = "push"
	ChannelWebhook = "webhook"
)

// StatusActive is the baseline status assigned to a player that dropped off
// the injury report. The feed carries no explicit signal for removals, so the
// pipeline treats disappearance as a return to active duty.
const StatusActive = "ACTIVE"

// Snapshot is one immutable fetch of the injury report, identified by its
// content fingerprint.
type Snapshot struct {
	ID          int64     `json:"id"`
	FetchedAt   time.Time `json:"fetched_at"`
	SourceURL   string    `json:"source_url"`
	Fingerprint string    `json:"fingerprint"`
	Raw         []byte    `json:"-"`
}

// PlayerStatus is one player's state as extracted from a snapshot.
type PlayerStatus struct {
	PlayerID string `json:"player_id"` // external NBA id
	Name     string `json:"player_name"`
	Team     string `json:"team"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Details  string `json:"details,omitempty"`
	GameDate string `json:"game_date,omitempty"`
	Opponent string `json:"opponent,omitempty"`
	Rank     int    `json:"rank,omitempty"` // 0 means unranked

	// Set during diffing for the audit trail.
	IsChange       bool   `json:"is_change,omitempty"`
	PreviousStatus string `json:"previous_status,omitempty"`
}

// StatusChange is one detected transition of a player's status between two
// snapshots. OldStatus is empty for players newly added to the report;
// NewStatus is StatusActive for players removed from it.
type StatusChange struct {
	ID          int64     `json:"id"`
	PlayerID    string    `json:"player_id"` // external NBA id
	PlayerName  string    `json:"player_name"`
	Team        string    `json:"team"`
	OldStatus   string    `json:"old_status,omitempty"`
	NewStatus   string    `json:"new_status"`
	Reason      string    `json:"reason,omitempty"`
	Details     string    `json:"details,omitempty"`
	Rank        int       `json:"rank,omitempty"`
	SnapshotID  int64     `json:"snapshot_id"`
	DetectedAt  time.Time `json:"detected_at"`
	Delivered   bool      `json:"delivered"`
	DeliveredAt time.Time `json:"delivered_at,omitempty"`
}

// Player is a tracked NBA player with its external id mapping and ranking.
type Player struct {
	ID       int64  `json:"id"`
	NBAID    string `json:"nba_id"`
	Name     string `json:"name"`
	Team     string `json:"team"`
	Rank     int    `json:"rank,omitempty"`
	IsTop100 bool   `json:"is_top_100"`
}

// Subscriber is a notification recipient with global channel toggles, an
// optional quiet-hours window, and scoped preference overrides.
type Subscriber struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Active bool   `json:"active"`

	EmailEnabled   bool `json:"email_enabled"`
	PushEnabled    bool `json:"push_enabled"`
	WebhookEnabled bool `json:"webhook_enabled"`

	PushToken  string `json:"push_token,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`

	// 24-hour "HH:MM" strings; both must be set for suppression to apply.
	QuietHoursStart string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   string `json:"quiet_hours_end,omitempty"`

	Overrides []PreferenceOverride `json:"overrides,omitempty"`
}

// PreferenceOverride scopes channel settings to a specific player or a whole
// team. Nil channel flags mean "not defined here, fall through". A player
// override beats a team override, which beats the subscriber's globals.
type PreferenceOverride struct {
	ID           int64  `json:"id"`
	SubscriberID int64  `json:"subscriber_id"`
	PlayerID     *int64 `json:"player_id,omitempty"`
	Team         string `json:"team,omitempty"`

	EmailEnabled   *bool `json:"email_enabled,omitempty"`
	PushEnabled    *bool `json:"push_enabled,omitempty"`
	WebhookEnabled *bool `json:"webhook_enabled,omitempty"`

	// 1-5 where 1 is most important; a change is delivered only when its
	// importance is at or above this bar (numerically <=).
	MinImportance int `json:"min_importance"`
}

// Notification is one channel-specific payload ready to send, tagged with the
// subscriber and change it was built for.
type Notification struct {
	Channel      string `json:"channel"`
	Recipient    string `json:"recipient"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	HTML         string `json:"html,omitempty"`
	SubscriberID int64  `json:"subscriber_id"`
	ChangeID     int64  `json:"change_id"`
}

// SendResult is the per-recipient outcome of a channel send.
type SendResult struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}
