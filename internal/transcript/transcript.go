// Package transcript exports a conversation to a file and reads it back.
package transcript

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fakeyudi/syllabus/internal/message"
)

// Version is the transcript format version.
const Version = 1

// Transcript is one exported session. Messages are kept in wire form so a
// transcript decodes through the same boundary as a backend session.
type Transcript struct {
	Version    int               `json:"version"`
	SessionID  string            `json:"session_id"`
	Title      string            `json:"title"`
	Backend    string            `json:"backend,omitempty"`
	ExportedAt time.Time         `json:"exported_at"`
	Messages   []json.RawMessage `json:"messages"`
}

// New builds a transcript of msgs.
func New(sessionID, title, backendURL string, msgs []message.Message, at time.Time) (*Transcript, error) {
	raws, err := message.EncodeAll(msgs)
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	if raws == nil {
		raws = []json.RawMessage{}
	}
	return &Transcript{
		Version:    Version,
		SessionID:  sessionID,
		Title:      title,
		Backend:    backendURL,
		ExportedAt: at.UTC().Truncate(time.Second),
		Messages:   raws,
	}, nil
}

// Conversation decodes the stored messages.
func (t *Transcript) Conversation() []message.Message {
	return message.DecodeAll(t.Messages)
}
