package backend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Question modes.
const (
	ModeSyllabus = "syllabus"
	ModeInternet = "internet"
)

// Answer styles.
const (
	StyleConcise    = "concise"
	StyleDetailed   = "detailed"
	StyleStepByStep = "step-by-step"
)

// Styles lists the answer styles in display order.
var Styles = []string{StyleConcise, StyleDetailed, StyleStepByStep}

// ValidStyle reports whether s is a known answer style.
func ValidStyle(s string) bool {
	for _, v := range Styles {
		if v == s {
			return true
		}
	}
	return false
}

// Chat statuses. An empty status (or "success") is a normal answer.
const (
	StatusMissing    = "missing"
	StatusNoSyllabus = "no_syllabus"
)

// SessionSummary is an entry of the session list.
type SessionSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type newSessionResponse struct {
	SessionID string `json:"session_id"`
}

type sessionHistory struct {
	Title    string            `json:"title,omitempty"`
	Messages []json.RawMessage `json:"messages"`
}

type renameRequest struct {
	SessionID string `json:"session_id"`
	NewTitle  string `json:"new_title"`
}

// ChatRequest is the body of a chat call.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Mode      string `json:"mode"`
	Style     string `json:"style"`
}

// ChatResponse carries the consumed fields of a chat answer.
type ChatResponse struct {
	Status string `json:"status,omitempty"`
	Answer string `json:"answer"`
	Source string `json:"source,omitempty"`
	Tag    string `json:"tag,omitempty"`
}

type examRequest struct {
	Topic string `json:"topic"`
}

// ExamResponse holds the generated quiz document, still unparsed.
type ExamResponse struct {
	QuizJSON string `json:"quiz_json"`
}

// PYQResponse holds the solutions array exactly as returned.
type PYQResponse struct {
	Solutions json.RawMessage `json:"pyq_solutions"`
}

// TrendResponse holds the analysis document, still unparsed.
type TrendResponse struct {
	Analysis string `json:"analysis"`
}

type videoRequest struct {
	URL string `json:"url"`
}

// VideoResponse is the summary of a video.
type VideoResponse struct {
	Answer string `json:"answer"`
	Source string `json:"source,omitempty"`
}

// Upload is a file sent as multipart form data.
type Upload struct {
	Name string
	Data []byte
}

// ReadUpload loads the file at path for upload.
func ReadUpload(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Upload{Name: filepath.Base(path), Data: data}, nil
}
