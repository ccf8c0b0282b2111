// Package backend is the HTTP client for the study-assistant service. It
// speaks JSON for ordinary calls and multipart form data for file uploads.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is wrapped by StatusError for 404 responses.
var ErrNotFound = errors.New("not found")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Op     string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("backend %s: status %d", e.Op, e.Code)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

const maxErrorBody = 4 << 10

// Client calls the backend over HTTP.
type Client struct {
	base   string
	http   *http.Client
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:   strings.TrimRight(u.String(), "/"),
		http:   &http.Client{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.base }

// ListSessions returns the known sessions, most recent first.
func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var out []SessionSummary
	if err := c.doJSON(ctx, "list sessions", http.MethodGet, "/sessions/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewSession mints a session and returns its id.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var out newSessionResponse
	if err := c.doJSON(ctx, "new session", http.MethodPost, "/sessions/new/", nil, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("backend new session: empty session_id")
	}
	return out.SessionID, nil
}

// LoadSession returns the persisted messages of a session, undecoded.
func (c *Client) LoadSession(ctx context.Context, id string) ([]json.RawMessage, error) {
	var out sessionHistory
	if err := c.doJSON(ctx, "load session", http.MethodGet, "/sessions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// RenameSession sets a session's title.
func (c *Client) RenameSession(ctx context.Context, id, title string) error {
	return c.doJSON(ctx, "rename session", http.MethodPost, "/sessions/rename/",
		renameRequest{SessionID: id, NewTitle: title}, nil)
}

// ClearSessions deletes every session on the server.
func (c *Client) ClearSessions(ctx context.Context) error {
	return c.doJSON(ctx, "clear sessions", http.MethodDelete, "/sessions/clear/", nil, nil)
}

// UploadSyllabus replaces the server's syllabus with the given PDFs.
func (c *Client) UploadSyllabus(ctx context.Context, files ...Upload) error {
	if len(files) == 0 {
		return fmt.Errorf("upload syllabus: no files")
	}
	return c.doMultipart(ctx, "upload syllabus", "/upload-pdfs/", files, nil)
}

// Chat asks a question.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.doJSON(ctx, "chat", http.MethodPost, "/chat/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateExam requests a mock exam for topic.
func (c *Client) GenerateExam(ctx context.Context, topic string) (*ExamResponse, error) {
	var out ExamResponse
	if err := c.doJSON(ctx, "generate exam", http.MethodPost, "/generate-exam/", examRequest{Topic: topic}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SolvePYQ uploads a past paper and returns its solutions.
func (c *Client) SolvePYQ(ctx context.Context, file Upload) (*PYQResponse, error) {
	var out PYQResponse
	if err := c.doMultipart(ctx, "solve pyq", "/solve-pyq/", []Upload{file}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeTrends uploads a past paper and returns its topic analysis.
func (c *Client) AnalyzeTrends(ctx context.Context, file Upload) (*TrendResponse, error) {
	var out TrendResponse
	if err := c.doMultipart(ctx, "analyze trends", "/analyze-trends/", []Upload{file}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeVideo summarizes the video at videoURL against the syllabus.
func (c *Client) AnalyzeVideo(ctx context.Context, videoURL string) (*VideoResponse, error) {
	var out VideoResponse
	if err := c.doJSON(ctx, "analyze video", http.MethodPost, "/analyze-youtube/", videoRequest{URL: videoURL}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, body, contentType, out)
}

func (c *Client) doMultipart(ctx context.Context, op, path string, files []Upload, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return fmt.Errorf("backend %s: %w", op, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return fmt.Errorf("backend %s: %w", op, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("backend %s: %w", op, err)
	}
	return c.do(ctx, op, http.MethodPost, path, &buf, w.FormDataContentType(), out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("backend %s: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("op", op), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("backend %s: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: op, Code: resp.StatusCode, Detail: readDetail(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend %s: decode response: %w", op, err)
	}
	return nil
}

// readDetail extracts the error detail the service sends as {"detail": ...},
// falling back to the raw body.
func readDetail(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != nil {
		if s, ok := body.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(body.Detail); err == nil {
			return string(b)
		}
	}
	return strings.TrimSpace(string(data))
}
