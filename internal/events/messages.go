package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"walletmon/internal/coordinator"
)

// SnapshotUpdatedMessage is the compact summary published after each
// successful refresh cycle. Consumers needing the full transaction list read
// it from the sensor API instead.
type SnapshotUpdatedMessage struct {
	MessageID          string             `json:"message_id"`
	TotalTransactions  int                `json:"total_transactions"`
	ActiveAccountCount int                `json:"account_count"`
	RequestsMade       int                `json:"requests_made"`
	Aggregates         map[string]float64 `json:"aggregates"`
	UpdatedAt          time.Time          `json:"updated_at"`
	PublishedAt        time.Time          `json:"published_at"`
}

// NewSnapshotUpdatedMessage builds a message from a published snapshot.
func NewSnapshotUpdatedMessage(snap coordinator.Snapshot) *SnapshotUpdatedMessage {
	return &SnapshotUpdatedMessage{
		MessageID:          uuid.NewString(),
		TotalTransactions:  snap.TotalTransactions,
		ActiveAccountCount: snap.ActiveAccountCount,
		RequestsMade:       snap.RequestsMade,
		Aggregates:         snap.Aggregates,
		UpdatedAt:          snap.UpdatedAt,
		PublishedAt:        time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *SnapshotUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotUpdatedMessageFromJSON creates a message from JSON bytes.
func SnapshotUpdatedMessageFromJSON(data []byte) (*SnapshotUpdatedMessage, error) {
	var msg SnapshotUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
