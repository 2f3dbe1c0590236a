package report

import (
	"encoding/json"
	"fmt"

	"github.com/kmaassrock/nba-injury-alert/internal/models"
)

// ProcessingError is returned when a snapshot payload cannot be normalized or
// diffed. It aborts only the current poll cycle.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed: %v", e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// rawReport mirrors the provider's injury report shape. Optional fields
// simply decode to their zero values when absent.
type rawReport struct {
	Players []struct {
		PersonID json.Number `json:"personId"`
		Name     string      `json:"name"`
		TeamName string      `json:"teamName"`
		Status   string      `json:"status"`
		Reason   string      `json:"reason"`
		Details  string      `json:"details"`
		GameDate string      `json:"gameDate"`
		Opponent string      `json:"opponent"`
	} `json:"players"`
}

// Normalize extracts a uniform list of per-player statuses from a raw injury
// report payload. Entries without a player id or status label are dropped
// rather than failing the whole snapshot.
func Normalize(raw []byte) ([]models.PlayerStatus, error) {
	var doc rawReport
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ProcessingError{Err: fmt.Errorf("decode injury report: %w", err)}
	}

	statuses := make([]models.PlayerStatus, 0, len(doc.Players))
	for _, p := range doc.Players {
		id := p.PersonID.String()
		if id == "" || p.Status == "" {
			continue
		}
		statuses = append(statuses, models.PlayerStatus{
			PlayerID: id,
			Name:     p.Name,
			Team:     p.TeamName,
			Status:   p.Status,
			Reason:   p.Reason,
			Details:  p.Details,
			GameDate: p.GameDate,
			Opponent: p.Opponent,
		})
	}
	return statuses, nil
}

// FilterTopPlayers restricts statuses to the given priority players and
// attaches each surviving record's current rank.
func FilterTopPlayers(statuses []models.PlayerStatus, topPlayers []models.Player) []models.PlayerStatus {
	ranks := make(map[string]int, len(topPlayers))
	for _, p := range topPlayers {
		ranks[p.NBAID] = p.Rank
	}

	var filtered []models.PlayerStatus
	for _, st := range statuses {
		rank, ok := ranks[st.PlayerID]
		if !ok {
			continue
		}
		st.Rank = rank
		filtered = append(filtered, st)
	}
	return filtered
}
