package match

import "testing"

func TestDetectChanges(t *testing.T) {
	current := &Summary{ExternalID: "42", Status: StatusCompleted, Team1Score: 2, Team2Score: 1}

	t.Run("unseen match", func(t *testing.T) {
		changes := DetectChanges(nil, current)
		if len(changes) != 1 || changes[0].ChangeType != "new" {
			t.Fatalf("DetectChanges(nil) = %+v, want one new change", changes)
		}
	})

	t.Run("status and score change", func(t *testing.T) {
		prev := &Match{ExternalID: "42", Status: StatusLive, Team1Score: 1, Team2Score: 1}
		changes := DetectChanges(prev, current)
		if len(changes) != 2 {
			t.Fatalf("got %d changes, want 2", len(changes))
		}
		if changes[0].ChangeType != "status" || changes[0].OldValue != "live" || changes[0].NewValue != "completed" {
			t.Errorf("unexpected status change %+v", changes[0])
		}
		if changes[1].ChangeType != "score" || changes[1].OldValue != "1-1" || changes[1].NewValue != "2-1" {
			t.Errorf("unexpected score change %+v", changes[1])
		}
	})

	t.Run("no change", func(t *testing.T) {
		prev := &Match{ExternalID: "42", Status: StatusCompleted, Team1Score: 2, Team2Score: 1}
		if changes := DetectChanges(prev, current); len(changes) != 0 {
			t.Errorf("got %+v, want no changes", changes)
		}
	})
}
