// Package voice wraps speech recognition and speech synthesis engines as
// start/stop singletons. At most one capture and one utterance are active at
// a time; completion is reported once on a channel.
package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrUnsupported is returned when no engine is available for the operation.
var ErrUnsupported = errors.New("speech recognition is not supported on this system")

// Playback rate bounds. The rate multiplies the engine's normal speed.
const (
	MinRate     = 0.5
	MaxRate     = 2.0
	DefaultRate = 1.0
)

// Recognizer turns speech into text fragments. The returned channel is
// closed when speech ends or ctx is cancelled.
type Recognizer interface {
	Listen(ctx context.Context) (<-chan string, error)
}

// Synthesizer speaks text, blocking until the utterance ends or ctx is
// cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, text string, rate float64) error
}

// AppendFragment adds a recognized fragment to the pending input text.
func AppendFragment(pending, fragment string) string {
	fragment = strings.TrimSpace(fragment)
	switch {
	case fragment == "":
		return pending
	case pending == "":
		return fragment
	default:
		return pending + " " + fragment
	}
}

// Capture owns the single speech capture session.
type Capture struct {
	rec    Recognizer
	logger *zap.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewCapture returns a capture over rec. A nil rec makes Start report
// ErrUnsupported.
func NewCapture(rec Recognizer, logger *zap.Logger) *Capture {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capture{rec: rec, logger: logger}
}

// Start begins a capture session, cancelling any session already running.
// Fragments arrive on the returned channel, which is closed when the
// session ends for any reason.
func (c *Capture) Start(ctx context.Context) (<-chan string, error) {
	if c.rec == nil {
		return nil, ErrUnsupported
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.logger.Debug("capture replaced")
	}
	c.gen++
	gen := c.gen
	cctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	src, err := c.rec.Listen(cctx)
	if err != nil {
		c.end(gen)
		return nil, fmt.Errorf("start capture: %w", err)
	}
	c.logger.Debug("capture started")

	out := make(chan string)
	go func() {
		defer close(out)
		defer c.end(gen)
		for {
			select {
			case frag, ok := <-src:
				if !ok {
					return
				}
				select {
				case out <- frag:
				case <-cctx.Done():
					return
				}
			case <-cctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Stop ends the running capture session, if any.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.gen++
		c.logger.Debug("capture stopped")
	}
}

// Listening reports whether a capture session is running.
func (c *Capture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *Capture) end(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Playback owns the single active utterance.
type Playback struct {
	synth  Synthesizer
	logger *zap.Logger

	mu     sync.Mutex
	rate   float64
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayback returns a playback over synth at DefaultRate.
func NewPlayback(synth Synthesizer, logger *zap.Logger) *Playback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Playback{synth: synth, logger: logger, rate: DefaultRate}
}

// SetRate sets the rate used by later utterances.
func (p *Playback) SetRate(rate float64) error {
	if rate < MinRate || rate > MaxRate {
		return fmt.Errorf("voice rate %.2f outside [%.1f, %.1f]", rate, MinRate, MaxRate)
	}
	p.mu.Lock()
	p.rate = rate
	p.mu.Unlock()
	return nil
}

// Rate returns the configured rate.
func (p *Playback) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// Speak toggles playback. If an utterance is active it is cancelled and
// nothing new starts; the returned channel is the cancelled utterance's and
// started is false. Otherwise text starts playing and done is closed when it
// ends.
func (p *Playback) Speak(text string) (done <-chan struct{}, started bool) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		d := p.done
		p.done = nil
		p.gen++
		p.mu.Unlock()
		p.logger.Debug("playback stopped")
		return d, false
	}
	if p.synth == nil || strings.TrimSpace(text) == "" {
		p.mu.Unlock()
		ch := make(chan struct{})
		close(ch)
		return ch, false
	}

	p.gen++
	gen := p.gen
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan struct{})
	p.cancel, p.done = cancel, ch
	rate := p.rate
	p.mu.Unlock()

	go func() {
		defer close(ch)
		defer cancel()
		if err := p.synth.Speak(ctx, text, rate); err != nil && ctx.Err() == nil {
			p.logger.Warn("playback failed", zap.Error(err))
		}
		p.mu.Lock()
		if p.gen == gen {
			p.cancel, p.done = nil, nil
		}
		p.mu.Unlock()
	}()
	p.logger.Debug("playback started", zap.Float64("rate", rate), zap.Int("chars", len(text)))
	return ch, true
}

// Stop cancels the active utterance, if any.
func (p *Playback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel, p.done = nil, nil
		p.gen++
	}
}

// Speaking reports whether an utterance is active.
func (p *Playback) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}
