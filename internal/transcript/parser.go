package transcript

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Parser reads a Transcript back from bytes.
type Parser interface {
	Parse(data []byte) (*Transcript, error)
}

// ErrNotTranscript is returned by Detect for data in neither transcript format.
var ErrNotTranscript = errors.New("not a syllabus transcript")

// Detect picks the parser for data: Markdown when the version sentinel is
// present, JSON when the data is an object.
func Detect(data []byte) (Parser, error) {
	switch {
	case bytes.Contains(data, []byte(versionSentinel)):
		return &MarkdownParser{}, nil
	case bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")):
		return &JSONParser{}, nil
	default:
		return nil, ErrNotTranscript
	}
}

// JSONParser parses a JSON transcript.
type JSONParser struct{}

func (p *JSONParser) Parse(data []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse JSON transcript: %w", err)
	}
	if t.Version != Version {
		return nil, fmt.Errorf("failed to parse JSON transcript: unsupported version %d", t.Version)
	}
	return &t, nil
}

// MarkdownParser extracts the embedded payload from a Markdown transcript.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(data []byte) (*Transcript, error) {
	content := string(data)
	if !strings.Contains(content, versionSentinel) {
		return nil, fmt.Errorf("not a syllabus transcript: missing version sentinel")
	}

	start := strings.Index(content, dataPrefix)
	if start == -1 {
		return nil, fmt.Errorf("not a syllabus transcript: missing data payload")
	}
	start += len(dataPrefix)
	end := strings.Index(content[start:], dataSuffix)
	if end == -1 {
		return nil, fmt.Errorf("not a syllabus transcript: malformed data payload")
	}

	payload, err := base64.StdEncoding.DecodeString(content[start : start+end])
	if err != nil {
		return nil, fmt.Errorf("not a syllabus transcript: corrupted base64 payload: %w", err)
	}
	var t Transcript
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, fmt.Errorf("not a syllabus transcript: failed to parse embedded JSON: %w", err)
	}
	return &t, nil
}
