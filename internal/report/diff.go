package report

import (
	"time"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
)

// Diff computes the status changes between two normalized snapshots, keyed by
// player id. Three kinds of change are emitted:
//
//   - changed: present in both with a different status label
//   - added:   present only in current (old status empty)
//   - removed: present only in previous; the new status is the ACTIVE
//     baseline, since the feed gives no signal for players leaving the report
//
// Players whose status did not change produce nothing. Emission follows the
// input slice order (current first, then previous), so identical inputs
// always yield identical output.
func Diff(current, previous []models.PlayerStatus, snapshotID int64, at time.Time) []models.StatusChange {
	prevByPlayer := make(map[string]models.PlayerStatus, len(previous))
	for _, st := range previous {
		prevByPlayer[st.PlayerID] = st
	}
	currByPlayer := make(map[string]models.PlayerStatus, len(current))
	for _, st := range current {
		currByPlayer[st.PlayerID] = st
	}

	var changes []models.StatusChange

	for _, curr := range current {
		prev, ok := prevByPlayer[curr.PlayerID]
		if ok {
			if curr.Status == prev.Status {
				continue
			}
			changes = append(changes, models.StatusChange{
				PlayerID:   curr.PlayerID,
				PlayerName: curr.Name,
				Team:       curr.Team,
				OldStatus:  prev.Status,
				NewStatus:  curr.Status,
				Reason:     curr.Reason,
				Details:    curr.Details,
				Rank:       curr.Rank,
				SnapshotID: snapshotID,
				DetectedAt: at,
			})
			continue
		}

		changes = append(changes, models.StatusChange{
			PlayerID:   curr.PlayerID,
			PlayerName: curr.Name,
			Team:       curr.Team,
			NewStatus:  curr.Status,
			Reason:     curr.Reason,
			Details:    curr.Details,
			Rank:       curr.Rank,
			SnapshotID: snapshotID,
			DetectedAt: at,
		})
	}

	for _, prev := range previous {
		if _, ok := currByPlayer[prev.PlayerID]; ok {
			continue
		}
		changes = append(changes, models.StatusChange{
			PlayerID:   prev.PlayerID,
			PlayerName: prev.Name,
			Team:       prev.Team,
			OldStatus:  prev.Status,
			NewStatus:  models.StatusActive,
			Rank:       prev.Rank,
			SnapshotID: snapshotID,
			DetectedAt: at,
		})
	}

	return changes
}

// AnnotateChanges marks the statuses that differ from the player's previous
// status, for the stored audit trail.
func AnnotateChanges(current []models.PlayerStatus, changes []models.StatusChange) []models.PlayerStatus {
	changed := make(map[string]string, len(changes))
	for _, ch := range changes {
		changed[ch.PlayerID] = ch.OldStatus
	}

	annotated := make([]models.PlayerStatus, len(current))
	for i, st := range current {
		if old, ok := changed[st.PlayerID]; ok {
			st.IsChange = true
			st.PreviousStatus = old
		}
		annotated[i] = st
	}
	return annotated
}
