package notify

import (
	"context"
	"strings"
	"time"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/kmaassrock/nba-injury-alert/internal/storage"
	"github.com/sirupsen/logrus"
)

// Router resolves which subscribers and channels each status change should
// reach, honoring quiet hours and scoped preference overrides.
type Router struct {
	store storage.Store
	now   func() time.Time
}

// NewRouter creates a router backed by the given store.
func NewRouter(store storage.Store) *Router {
	return &Router{store: store, now: time.Now}
}

// Route builds the channel-specific payloads for a batch of undelivered
// changes. A subscriber in quiet hours is skipped entirely; nothing beyond a
// log line records the suppression.
func (r *Router) Route(ctx context.Context, changes []models.StatusChange) ([]models.Notification, error) {
	var notifications []models.Notification

	for _, ch := range changes {
		player, err := r.store.GetOrCreatePlayer(ctx, models.Player{
			NBAID: ch.PlayerID,
			Name:  ch.PlayerName,
			Team:  ch.Team,
			Rank:  ch.Rank,
		})
		if err != nil {
			return nil, err
		}

		subscribers, err := r.store.SubscribersFor(ctx, player.ID, player.Team)
		if err != nil {
			return nil, err
		}
		if len(subscribers) == 0 {
			continue
		}

		subject, body := FormatChange(ch)
		html := FormatChangeHTML(ch)
		importance := importanceOf(ch.NewStatus)
		now := r.now()

		for _, sub := range subscribers {
			if InQuietHours(sub.QuietHoursStart, sub.QuietHoursEnd, now) {
				logrus.Infof("Subscriber %s is in quiet hours, skipping notification for %s", sub.Email, ch.PlayerName)
				continue
			}

			playerOv, teamOv := matchOverrides(sub.Overrides, player.ID, player.Team)

			if bar := importanceBar(playerOv, teamOv); bar > 0 && importance > bar {
				logrus.Debugf("Change for %s below importance bar for %s (%d > %d)",
					ch.PlayerName, sub.Email, importance, bar)
				continue
			}

			if resolveChannel(playerOv, teamOv, sub.EmailEnabled, channelEmail) && sub.Email != "" {
				notifications = append(notifications, models.Notification{
					Channel: models.ChannelEmail, Recipient: sub.Email,
					Subject: subject, Body: body, HTML: html,
					SubscriberID: sub.ID, ChangeID: ch.ID,
				})
			}
			if resolveChannel(playerOv, teamOv, sub.PushEnabled, channelPush) && sub.PushToken != "" {
				notifications = append(notifications, models.Notification{
					Channel: models.ChannelPush, Recipient: sub.PushToken,
					Subject: subject, Body: body,
					SubscriberID: sub.ID, ChangeID: ch.ID,
				})
			}
			if resolveChannel(playerOv, teamOv, sub.WebhookEnabled, channelWebhook) && sub.WebhookURL != "" {
				notifications = append(notifications, models.Notification{
					Channel: models.ChannelWebhook, Recipient: sub.WebhookURL,
					Subject: subject, Body: body, HTML: html,
					SubscriberID: sub.ID, ChangeID: ch.ID,
				})
			}
		}
	}

	return notifications, nil
}

// matchOverrides picks the subscriber's player-scoped and team-scoped
// overrides relevant to this change, if any.
func matchOverrides(overrides []models.PreferenceOverride, playerID int64, team string) (playerOv, teamOv *models.PreferenceOverride) {
	for i := range overrides {
		o := &overrides[i]
		if o.PlayerID != nil && *o.PlayerID == playerID && playerOv == nil {
			playerOv = o
		}
		if o.Team != "" && o.Team == team && teamOv == nil {
			teamOv = o
		}
	}
	return playerOv, teamOv
}

type channelField int

const (
	channelEmail channelField = iota
	channelPush
	channelWebhook
)

func overrideFlag(o *models.PreferenceOverride, field channelField) *bool {
	if o == nil {
		return nil
	}
	switch field {
	case channelEmail:
		return o.EmailEnabled
	case channelPush:
		return o.PushEnabled
	default:
		return o.WebhookEnabled
	}
}

// resolveChannel applies the precedence chain: player override, then team
// override, then the subscriber's global toggle. The first defined value wins.
func resolveChannel(playerOv, teamOv *models.PreferenceOverride, global bool, field channelField) bool {
	if v := overrideFlag(playerOv, field); v != nil {
		return *v
	}
	if v := overrideFlag(teamOv, field); v != nil {
		return *v
	}
	return global
}

// importanceBar returns the minimum-importance threshold from the most
// specific matching override, zero when none applies.
func importanceBar(playerOv, teamOv *models.PreferenceOverride) int {
	if playerOv != nil {
		return playerOv.MinImportance
	}
	if teamOv != nil {
		return teamOv.MinImportance
	}
	return 0
}

// importanceOf maps a status label to an importance level, 1 being most
// important. Unknown labels land in the middle.
func importanceOf(status string) int {
	switch strings.ToUpper(status) {
	case "OUT":
		return 1
	case "DOUBTFUL":
		return 2
	case "QUESTIONABLE":
		return 3
	case "PROBABLE", "DAY-TO-DAY":
		return 4
	case models.StatusActive, "AVAILABLE":
		return 5
	default:
		return 3
	}
}
