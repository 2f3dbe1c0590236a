package report

import (
	"testing"
	"time"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func status(id, name, team, label string) models.PlayerStatus {
	return models.PlayerStatus{PlayerID: id, Name: name, Team: team, Status: label}
}

func TestDiff_ChangedAndAdded(t *testing.T) {
	previous := []models.PlayerStatus{
		status("1", "LeBron James", "LAL", "OUT"),
		status("2", "Stephen Curry", "GSW", "QUESTIONABLE"),
	}
	current := []models.PlayerStatus{
		status("1", "LeBron James", "LAL", "QUESTIONABLE"),
		status("2", "Stephen Curry", "GSW", "QUESTIONABLE"),
		status("3", "Joel Embiid", "PHI", "OUT"),
	}

	at := time.Now()
	changes := Diff(current, previous, 7, at)

	require.Len(t, changes, 2)

	assert.Equal(t, "1", changes[0].PlayerID)
	assert.Equal(t, "OUT", changes[0].OldStatus)
	assert.Equal(t, "QUESTIONABLE", changes[0].NewStatus)
	assert.Equal(t, int64(7), changes[0].SnapshotID)
	assert.Equal(t, at, changes[0].DetectedAt)

	assert.Equal(t, "3", changes[1].PlayerID)
	assert.Empty(t, changes[1].OldStatus, "new entries carry no old status")
	assert.Equal(t, "OUT", changes[1].NewStatus)
}

func TestDiff_RemovedBecomesActive(t *testing.T) {
	previous := []models.PlayerStatus{
		status("1", "LeBron James", "LAL", "OUT"),
		status("2", "Stephen Curry", "GSW", "DOUBTFUL"),
	}

	changes := Diff(nil, previous, 8, time.Now())

	require.Len(t, changes, 2)
	for _, ch := range changes {
		assert.Equal(t, models.StatusActive, ch.NewStatus)
	}
	assert.Equal(t, "OUT", changes[0].OldStatus)
	assert.Equal(t, "DOUBTFUL", changes[1].OldStatus)
}

func TestDiff_NoChanges(t *testing.T) {
	statuses := []models.PlayerStatus{
		status("1", "LeBron James", "LAL", "OUT"),
		status("2", "Stephen Curry", "GSW", "QUESTIONABLE"),
	}

	changes := Diff(statuses, statuses, 9, time.Now())
	assert.Empty(t, changes)
}

func TestDiff_EmptyPrevious(t *testing.T) {
	current := []models.PlayerStatus{
		status("1", "LeBron James", "LAL", "OUT"),
	}

	changes := Diff(current, nil, 10, time.Now())

	require.Len(t, changes, 1)
	assert.Empty(t, changes[0].OldStatus)
	assert.Equal(t, "OUT", changes[0].NewStatus)
}

func TestDiff_Deterministic(t *testing.T) {
	previous := []models.PlayerStatus{
		status("1", "A", "LAL", "OUT"),
		status("2", "B", "GSW", "OUT"),
		status("3", "C", "PHI", "OUT"),
	}
	current := []models.PlayerStatus{
		status("2", "B", "GSW", "QUESTIONABLE"),
		status("4", "D", "BOS", "DOUBTFUL"),
	}

	at := time.Now()
	first := Diff(current, previous, 11, at)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Diff(current, previous, 11, at))
	}

	// Order follows the input slices: current entries first, then removals.
	require.Len(t, first, 4)
	assert.Equal(t, []string{"2", "4", "1", "3"}, []string{
		first[0].PlayerID, first[1].PlayerID, first[2].PlayerID, first[3].PlayerID,
	})
}

func TestAnnotateChanges(t *testing.T) {
	current := []models.PlayerStatus{
		status("1", "A", "LAL", "QUESTIONABLE"),
		status("2", "B", "GSW", "OUT"),
	}
	changes := []models.StatusChange{
		{PlayerID: "1", OldStatus: "OUT", NewStatus: "QUESTIONABLE"},
	}

	annotated := AnnotateChanges(current, changes)

	require.Len(t, annotated, 2)
	assert.True(t, annotated[0].IsChange)
	assert.Equal(t, "OUT", annotated[0].PreviousStatus)
	assert.False(t, annotated[1].IsChange)
	assert.Empty(t, annotated[1].PreviousStatus)
}
