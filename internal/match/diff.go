package match

import (
	"fmt"
	"time"
)

// Change describes one field transition between a stored match and a fresh record
type Change struct {
	ExternalID string    `json:"vlr_match_id"`
	ChangeType string    `json:"change_type"` // "new", "status", "score"
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	DetectedAt time.Time `json:"detected_at"`
}

// DetectChanges compares the stored row (nil when unseen) with an incoming summary
func DetectChanges(previous *Match, current *Summary) []Change {
	now := time.Now().UTC()

	if previous == nil {
		return []Change{{
			ExternalID: current.ExternalID,
			ChangeType: "new",
			NewValue:   string(current.Status),
			DetectedAt: now,
		}}
	}

	var changes []Change

	if previous.Status != current.Status {
		changes = append(changes, Change{
			ExternalID: current.ExternalID,
			ChangeType: "status",
			OldValue:   string(previous.Status),
			NewValue:   string(current.Status),
			DetectedAt: now,
		})
	}

	if previous.Team1Score != current.Team1Score || previous.Team2Score != current.Team2Score {
		changes = append(changes, Change{
			ExternalID: current.ExternalID,
			ChangeType: "score",
			OldValue:   fmt.Sprintf("%d-%d", previous.Team1Score, previous.Team2Score),
			NewValue:   fmt.Sprintf("%d-%d", current.Team1Score, current.Team2Score),
			DetectedAt: now,
		})
	}

	return changes
}
