package events

import (
	"testing"
	"time"

	"walletmon/internal/coordinator"
)

func TestSnapshotUpdatedMessage_Roundtrip(t *testing.T) {
	snap := coordinator.Snapshot{
		TotalTransactions:  12,
		ActiveAccountCount: 3,
		RequestsMade:       5,
		Aggregates:         map[string]float64{"spent_pln_7d": 120.5},
		UpdatedAt:          time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}

	msg := NewSnapshotUpdatedMessage(snap)
	if msg.MessageID == "" {
		t.Error("expected a generated message ID")
	}
	if msg.PublishedAt.IsZero() {
		t.Error("expected a publish timestamp")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	decoded, err := SnapshotUpdatedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if decoded.MessageID != msg.MessageID {
		t.Errorf("message ID mismatch: %q vs %q", decoded.MessageID, msg.MessageID)
	}
	if decoded.TotalTransactions != 12 || decoded.ActiveAccountCount != 3 || decoded.RequestsMade != 5 {
		t.Errorf("counts mismatch: %+v", decoded)
	}
	if decoded.Aggregates["spent_pln_7d"] != 120.5 {
		t.Errorf("aggregate mismatch: %v", decoded.Aggregates)
	}
	if !decoded.UpdatedAt.Equal(snap.UpdatedAt) {
		t.Errorf("updated_at mismatch: %v", decoded.UpdatedAt)
	}
}

func TestSnapshotUpdatedMessage_UniqueIDs(t *testing.T) {
	a := NewSnapshotUpdatedMessage(coordinator.Snapshot{})
	b := NewSnapshotUpdatedMessage(coordinator.Snapshot{})
	if a.MessageID == b.MessageID {
		t.Error("expected unique message IDs per message")
	}
}

func TestSnapshotUpdatedMessageFromJSON_Invalid(t *testing.T) {
	if _, err := SnapshotUpdatedMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
