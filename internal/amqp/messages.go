package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeEntrySync   = "entry.sync"
	TypeEntryDelete = "entry.delete"
)

// EntryMessage is the envelope for entry events on the sync queue. It is
// deliberately thin: id and version only, the worker fetches the full entry
// from the database when it processes the message.
type EntryMessage struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	TrackerID int64     `json:"tracker_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(id, trackerID, version int64) *EntryMessage {
	return &EntryMessage{
		Type:      TypeEntrySync,
		ID:        id,
		TrackerID: trackerID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewEntryDeleteMessage(id, trackerID int64) *EntryMessage {
	return &EntryMessage{
		Type:      TypeEntryDelete,
		ID:        id,
		TrackerID: trackerID,
		Timestamp: time.Now(),
	}
}

func (m *EntryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryMessageFromJSON(data []byte) (*EntryMessage, error) {
	var msg EntryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TypeEntrySync, TypeEntryDelete:
		return &msg, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}
