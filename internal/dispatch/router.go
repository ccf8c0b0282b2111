// Package dispatch turns user intents into backend calls and conversation
// entries. Every entry point echoes the request into the current log before
// calling the backend and then appends exactly one reply, whatever happens.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fakeyudi/syllabus/internal/backend"
	"github.com/fakeyudi/syllabus/internal/message"
	"github.com/fakeyudi/syllabus/internal/session"
)

// Fixed reply texts.
const (
	TextMissing      = "Topic not in Syllabus."
	TextNoSyllabus   = "Please upload a Syllabus PDF first."
	TextBackendError = "Backend Error"
	TextExamError    = "Error generating exam. Try again."
	TextPYQError     = "Error. Upload Syllabus first."
	TextVideoError   = "Error analyzing video."
)

// Echo texts for intents that carry no user-typed text.
const (
	EchoExam  = "Generate Mock Exam"
	EchoSolve = "Solve Paper"
	EchoTrend = "Analyze Trends"
)

// Precondition errors, returned before anything is echoed.
var (
	ErrEmptyQuestion = errors.New("question must not be empty")
	ErrEmptyURL      = errors.New("video url must not be empty")
	ErrNoFile        = errors.New("no file selected")
)

// PYQMode selects what to do with an uploaded past paper.
type PYQMode string

const (
	PYQSolve PYQMode = "solve"
	PYQTrend PYQMode = "trend"
)

// Backend is the part of the service API the router calls.
type Backend interface {
	Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
	GenerateExam(ctx context.Context, topic string) (*backend.ExamResponse, error)
	SolvePYQ(ctx context.Context, file backend.Upload) (*backend.PYQResponse, error)
	AnalyzeTrends(ctx context.Context, file backend.Upload) (*backend.TrendResponse, error)
	AnalyzeVideo(ctx context.Context, url string) (*backend.VideoResponse, error)
	UploadSyllabus(ctx context.Context, files ...backend.Upload) error
}

// Sessions exposes the current session to the router.
type Sessions interface {
	Current() string
	Log() *message.Log
	List(ctx context.Context) []session.Session
}

// Router dispatches intents.
type Router struct {
	backend  Backend
	sessions Sessions
	logger   *zap.Logger
	topic    func() string
	inflight atomic.Int32
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router's logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTopic replaces the exam correlation value generator.
func WithTopic(fn func() string) Option {
	return func(r *Router) { r.topic = fn }
}

// New returns a router over b and s.
func New(b Backend, s Sessions, opts ...Option) *Router {
	r := &Router{
		backend:  b,
		sessions: s,
		logger:   zap.NewNop(),
		topic:    func() string { return "ID:" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Busy reports whether any request is in flight. It is advisory; nothing
// stops a second request from being issued.
func (r *Router) Busy() bool { return r.inflight.Load() > 0 }

// begin echoes text into the current log and returns that log, so the reply
// lands next to its request even if the current session changes meanwhile.
func (r *Router) begin(text string) (*message.Log, string, error) {
	id := r.sessions.Current()
	if id == "" {
		return nil, "", session.ErrNoSession
	}
	log := r.sessions.Log()
	log.Append(message.UserText{Content: text})
	r.inflight.Add(1)
	return log, id, nil
}

func (r *Router) finish(log *message.Log, reply message.Message) message.Message {
	log.Append(reply)
	r.inflight.Add(-1)
	return reply
}

// SendQuestion asks text in the given mode and style. An empty mode means
// syllabus, an empty style means concise. The returned message is the reply
// that was appended.
func (r *Router) SendQuestion(ctx context.Context, text, mode, style string) (message.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuestion
	}
	if mode == "" {
		mode = backend.ModeSyllabus
	}
	if mode != backend.ModeSyllabus && mode != backend.ModeInternet {
		return nil, fmt.Errorf("unknown question mode %q", mode)
	}
	if style == "" {
		style = backend.StyleConcise
	}
	if !backend.ValidStyle(style) {
		return nil, fmt.Errorf("unknown answer style %q", style)
	}

	log, id, err := r.begin(text)
	if err != nil {
		return nil, err
	}
	resp, err := r.backend.Chat(ctx, backend.ChatRequest{SessionID: id, Question: text, Mode: mode, Style: style})
	if err != nil {
		r.logger.Warn("chat failed", zap.String("session", id), zap.String("mode", mode), zap.Error(err))
		return r.finish(log, message.AIText{Content: TextBackendError}), nil
	}

	var reply message.Message
	switch resp.Status {
	case backend.StatusMissing:
		reply = message.SystemAsk{Content: TextMissing, OriginalQuestion: text}
	case backend.StatusNoSyllabus:
		reply = message.AIText{Content: TextNoSyllabus}
	default:
		reply = message.AIText{Content: resp.Answer, Source: resp.Source, Tag: resp.Tag}
	}
	r.logger.Debug("chat answered",
		zap.String("session", id), zap.String("mode", mode), zap.String("status", resp.Status))
	r.finish(log, reply)

	// The backend titles a session after its first question.
	r.sessions.List(ctx)
	return reply, nil
}

// RetryOnInternet re-asks the question behind a SystemAsk in internet mode.
func (r *Router) RetryOnInternet(ctx context.Context, ask message.SystemAsk, style string) (message.Message, error) {
	return r.SendQuestion(ctx, ask.OriginalQuestion, backend.ModeInternet, style)
}

// GenerateExam requests a mock exam. A quiz document that does not parse
// yields an AIExam with no exam, which renders as an error card.
func (r *Router) GenerateExam(ctx context.Context) (message.Message, error) {
	log, id, err := r.begin(EchoExam)
	if err != nil {
		return nil, err
	}
	resp, err := r.backend.GenerateExam(ctx, r.topic())
	if err != nil {
		r.logger.Warn("generate exam failed", zap.String("session", id), zap.Error(err))
		return r.finish(log, message.AIText{Content: TextExamError}), nil
	}
	exam := message.ParseExam(resp.QuizJSON)
	if exam == nil {
		r.logger.Info("quiz document did not parse", zap.String("session", id))
	}
	return r.finish(log, message.AIExam{Exam: exam}), nil
}

// SubmitPYQ uploads a past paper to be solved or analyzed for trends.
func (r *Router) SubmitPYQ(ctx context.Context, file *backend.Upload, mode PYQMode) (message.Message, error) {
	if file == nil || file.Name == "" {
		return nil, ErrNoFile
	}
	var echo string
	switch mode {
	case PYQSolve:
		echo = EchoSolve
	case PYQTrend:
		echo = EchoTrend
	default:
		return nil, fmt.Errorf("unknown pyq mode %q", mode)
	}

	log, id, err := r.begin(echo)
	if err != nil {
		return nil, err
	}
	if mode == PYQSolve {
		resp, err := r.backend.SolvePYQ(ctx, *file)
		if err != nil {
			r.logger.Warn("solve pyq failed", zap.String("session", id), zap.String("file", file.Name), zap.Error(err))
			return r.finish(log, message.AIText{Content: TextPYQError}), nil
		}
		sols, err := message.ParsePYQ(resp.Solutions)
		if err != nil {
			r.logger.Info("pyq solutions did not parse", zap.String("session", id), zap.Error(err))
		}
		return r.finish(log, message.AIPYQ{Solutions: sols}), nil
	}

	resp, err := r.backend.AnalyzeTrends(ctx, *file)
	if err != nil {
		r.logger.Warn("analyze trends failed", zap.String("session", id), zap.String("file", file.Name), zap.Error(err))
		return r.finish(log, message.AIText{Content: TextPYQError}), nil
	}
	return r.finish(log, message.AITrend{Trends: message.ParseTrends(resp.Analysis)}), nil
}

// AnalyzeVideo summarizes the video at url against the syllabus.
func (r *Router) AnalyzeVideo(ctx context.Context, url string) (message.Message, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyURL
	}
	log, id, err := r.begin("Analyze Video: " + url)
	if err != nil {
		return nil, err
	}
	resp, err := r.backend.AnalyzeVideo(ctx, url)
	if err != nil {
		r.logger.Warn("analyze video failed", zap.String("session", id), zap.Error(err))
		return r.finish(log, message.AIText{Content: TextVideoError}), nil
	}
	return r.finish(log, message.AIText{
		Content: resp.Answer,
		Source:  message.SourceVideo,
		Tag:     message.TagVideoSummary,
	}), nil
}

// UploadSyllabus replaces the backend's syllabus. It does not touch the
// conversation; the caller reports the outcome.
func (r *Router) UploadSyllabus(ctx context.Context, files ...backend.Upload) error {
	if len(files) == 0 {
		return ErrNoFile
	}
	r.inflight.Add(1)
	defer r.inflight.Add(-1)
	if err := r.backend.UploadSyllabus(ctx, files...); err != nil {
		r.logger.Warn("upload syllabus failed", zap.Int("files", len(files)), zap.Error(err))
		return err
	}
	r.logger.Info("syllabus uploaded", zap.Int("files", len(files)))
	return nil
}
