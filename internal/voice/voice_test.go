package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"pgregory.net/rapid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// chanRecognizer hands out fragments pushed by the test.
type chanRecognizer struct {
	mu      sync.Mutex
	streams []chan string
}

func (r *chanRecognizer) Listen(ctx context.Context) (<-chan string, error) {
	ch := make(chan string)
	r.mu.Lock()
	r.streams = append(r.streams, ch)
	r.mu.Unlock()
	return ch, nil
}

func (r *chanRecognizer) stream(i int) chan string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streams[i]
}

// blockingSynth speaks until cancelled or released.
type blockingSynth struct {
	mu      sync.Mutex
	spoken  []string
	rates   []float64
	release chan struct{}
}

func newBlockingSynth() *blockingSynth {
	return &blockingSynth{release: make(chan struct{})}
}

func (s *blockingSynth) Speak(ctx context.Context, text string, rate float64) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.rates = append(s.rates, rate)
	s.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.release:
		return nil
	}
}

func (s *blockingSynth) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spoken)
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestAppendFragment(t *testing.T) {
	assert.Equal(t, "what is", AppendFragment("what is", "  "))
	assert.Equal(t, "paging", AppendFragment("", "paging"))
	assert.Equal(t, "what is paging", AppendFragment("what is", "paging"))
}

// Fragments only ever extend the pending text.
func TestAppendFragmentNeverReplaces(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pending := rapid.String().Draw(t, "pending")
		frag := rapid.String().Draw(t, "fragment")
		got := AppendFragment(pending, frag)
		if len(got) < len(pending) || got[:len(pending)] != pending {
			t.Fatalf("AppendFragment(%q, %q) = %q does not extend pending", pending, frag, got)
		}
	})
}

func TestCaptureUnsupported(t *testing.T) {
	c := NewCapture(nil, nil)
	_, err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.False(t, c.Listening())
}

func TestCaptureDeliversUntilEnd(t *testing.T) {
	rec := &chanRecognizer{}
	c := NewCapture(rec, nil)

	frags, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Listening())

	src := rec.stream(0)
	src <- "what is"
	assert.Equal(t, "what is", <-frags)
	close(src)

	_, ok := <-frags
	assert.False(t, ok)
	assert.Eventually(t, func() bool { return !c.Listening() }, time.Second, 5*time.Millisecond)
}

func TestCaptureStartCancelsPrevious(t *testing.T) {
	rec := &chanRecognizer{}
	c := NewCapture(rec, nil)

	first, err := c.Start(context.Background())
	require.NoError(t, err)
	second, err := c.Start(context.Background())
	require.NoError(t, err)

	_, ok := <-first
	assert.False(t, ok, "first session must end when a new one starts")
	assert.True(t, c.Listening())

	rec.stream(1) <- "paging"
	assert.Equal(t, "paging", <-second)

	c.Stop()
	assert.False(t, c.Listening())
	_, ok = <-second
	assert.False(t, ok)
}

type failingRecognizer struct{}

func (failingRecognizer) Listen(context.Context) (<-chan string, error) {
	return nil, errors.New("no microphone")
}

func TestCaptureStartFailure(t *testing.T) {
	c := NewCapture(failingRecognizer{}, nil)
	_, err := c.Start(context.Background())
	assert.ErrorContains(t, err, "no microphone")
	assert.False(t, c.Listening())
}

func TestPlaybackToggle(t *testing.T) {
	synth := newBlockingSynth()
	p := NewPlayback(synth, nil)

	done, started := p.Speak("Paging maps pages to frames.")
	require.True(t, started)
	assert.True(t, p.Speaking())

	again, started := p.Speak("Paging maps pages to frames.")
	assert.False(t, started)
	assert.False(t, p.Speaking())
	waitClosed(t, done)
	waitClosed(t, again)
	assert.Equal(t, 1, synth.count(), "toggle must not start a second utterance")
}

func TestPlaybackCompletes(t *testing.T) {
	synth := newBlockingSynth()
	p := NewPlayback(synth, nil)
	require.NoError(t, p.SetRate(1.5))

	done, started := p.Speak("hello")
	require.True(t, started)
	close(synth.release)
	waitClosed(t, done)
	assert.Eventually(t, func() bool { return !p.Speaking() }, time.Second, 5*time.Millisecond)

	done, started = p.Speak("again")
	require.True(t, started)
	waitClosed(t, done)
	assert.Equal(t, []float64{1.5, 1.5}, synth.rates)
}

func TestPlaybackStop(t *testing.T) {
	p := NewPlayback(newBlockingSynth(), nil)
	done, _ := p.Speak("long answer")
	p.Stop()
	waitClosed(t, done)
	assert.False(t, p.Speaking())
	p.Stop()
}

func TestPlaybackWithoutEngine(t *testing.T) {
	p := NewPlayback(nil, nil)
	done, started := p.Speak("hello")
	assert.False(t, started)
	waitClosed(t, done)
}

func TestSetRateBounds(t *testing.T) {
	p := NewPlayback(nil, nil)
	assert.Error(t, p.SetRate(0.4))
	assert.Error(t, p.SetRate(2.1))
	require.NoError(t, p.SetRate(MinRate))
	require.NoError(t, p.SetRate(MaxRate))
	assert.Equal(t, MaxRate, p.Rate())
}

// Any sequence of Speak calls keeps at most one utterance alive, and the
// engine only ever sees starts from an idle state.
func TestPlaybackAtMostOneActive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		synth := newBlockingSynth()
		p := NewPlayback(synth, nil)
		speaking := false
		starts := 0
		n := rapid.IntRange(1, 8).Draw(rt, "calls")
		var pending []<-chan struct{}
		for i := 0; i < n; i++ {
			done, started := p.Speak("text")
			pending = append(pending, done)
			if started == speaking {
				rt.Fatalf("call %d: started=%v while speaking=%v", i, started, speaking)
			}
			if started {
				starts++
			}
			speaking = started
		}
		p.Stop()
		for _, d := range pending {
			<-d
		}
		if synth.count() != starts {
			rt.Fatalf("engine saw %d utterances, want %d", synth.count(), starts)
		}
	})
}

func TestSpdRate(t *testing.T) {
	assert.Equal(t, 0, spdRate(1.0))
	assert.Equal(t, -50, spdRate(0.5))
	assert.Equal(t, 100, spdRate(2.0))
}

func TestNewRecognizerUnconfigured(t *testing.T) {
	_, err := NewRecognizer("   ")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = NewRecognizer("definitely-not-a-real-recognizer-binary")
	assert.ErrorIs(t, err, ErrUnsupported)
}
