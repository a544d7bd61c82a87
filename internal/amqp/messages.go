package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types carried in the Type field so a single queue can serve the
// external notification and analytics consumers.
const (
	TypeEntryMaterialized = "entry.materialized"
	TypeCommitmentRetired = "commitment.retired"
)

// EntryMaterializedMessage announces that a due commitment occurrence was
// turned into a permanent ledger entry. Consumers fetch details by entry id;
// the signed amount is included so notifiers need no extra read.
type EntryMaterializedMessage struct {
	EventID      string    `json:"event_id"`
	Type         string    `json:"type"`
	EntryID      int64     `json:"entry_id"`
	CommitmentID int64     `json:"commitment_id"`
	OwnerID      string    `json:"owner_id"`
	Date         string    `json:"date"` // YYYY-MM-DD occurrence date
	AmountCents  int64     `json:"amount_cents"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewEntryMaterializedMessage creates an entry event with a fresh event id.
func NewEntryMaterializedMessage(entryID, commitmentID int64, ownerID, date string, amountCents int64) *EntryMaterializedMessage {
	return &EntryMaterializedMessage{
		EventID:      uuid.NewString(),
		Type:         TypeEntryMaterialized,
		EntryID:      entryID,
		CommitmentID: commitmentID,
		OwnerID:      ownerID,
		Date:         date,
		AmountCents:  amountCents,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *EntryMaterializedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryMaterializedMessageFromJSON creates a message from JSON bytes.
func EntryMaterializedMessageFromJSON(data []byte) (*EntryMaterializedMessage, error) {
	var msg EntryMaterializedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CommitmentRetiredMessage announces that a commitment reached its terminal
// state and will never execute again.
type CommitmentRetiredMessage struct {
	EventID      string    `json:"event_id"`
	Type         string    `json:"type"`
	CommitmentID int64     `json:"commitment_id"`
	OwnerID      string    `json:"owner_id"`
	Reason       string    `json:"reason"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewCommitmentRetiredMessage creates a retirement event with a fresh event id.
func NewCommitmentRetiredMessage(commitmentID int64, ownerID, reason string) *CommitmentRetiredMessage {
	return &CommitmentRetiredMessage{
		EventID:      uuid.NewString(),
		Type:         TypeCommitmentRetired,
		CommitmentID: commitmentID,
		OwnerID:      ownerID,
		Reason:       reason,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *CommitmentRetiredMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CommitmentRetiredMessageFromJSON creates a message from JSON bytes.
func CommitmentRetiredMessageFromJSON(data []byte) (*CommitmentRetiredMessage, error) {
	var msg CommitmentRetiredMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
