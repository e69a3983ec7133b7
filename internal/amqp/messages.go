package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportMessage asks a worker to load the CSV at Path into the database.
type ImportMessage struct {
	JobID     string    `json:"job_id"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// NewImportMessage creates a message with a fresh job ID.
func NewImportMessage(path string) *ImportMessage {
	return &ImportMessage{
		JobID:     uuid.NewString(),
		Path:      path,
		Timestamp: time.Now().UTC(),
	}
}

// Validate rejects messages that cannot be processed, so they are not requeued.
func (m *ImportMessage) Validate() error {
	if _, err := uuid.Parse(m.JobID); err != nil {
		return errors.New("invalid job id")
	}
	if strings.TrimSpace(m.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ImportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportMessageFromJSON decodes and validates a message.
func ImportMessageFromJSON(data []byte) (*ImportMessage, error) {
	var msg ImportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
