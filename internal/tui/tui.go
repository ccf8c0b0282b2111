// Package tui provides the Bubble Tea chat client: a session sidebar, the
// conversation timeline and a prompt line that drives every study intent.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/fakeyudi/syllabus/internal/backend"
	"github.com/fakeyudi/syllabus/internal/dispatch"
	"github.com/fakeyudi/syllabus/internal/message"
	"github.com/fakeyudi/syllabus/internal/render"
	"github.com/fakeyudi/syllabus/internal/session"
	"github.com/fakeyudi/syllabus/internal/voice"
)

// Deps are the controllers the UI drives. Store, Router and Drawer are
// required.
type Deps struct {
	Store    *session.Store
	Router   *dispatch.Router
	Capture  *voice.Capture
	Playback *voice.Playback
	Drawer   *render.Drawer
	Logger   *zap.Logger
	// Style is the initial answer style.
	Style string
	// OnRate is called after the playback speed changes.
	OnRate func(rate float64)
}

// ── Panes and input modes ─────────────────

type pane int

const (
	paneInput pane = iota
	paneTimeline
	paneSessions
	paneCount
)

type inputMode int

const (
	modeAsk inputMode = iota
	modeRename
	modeVideo
	modeSolve
	modeTrend
	modeUpload
	modeConfirmClear
)

var modePrompts = map[inputMode]string{
	modeAsk:          "Ask › ",
	modeRename:       "Rename › ",
	modeVideo:        "Video URL › ",
	modeSolve:        "Paper to solve › ",
	modeTrend:        "Paper to analyze › ",
	modeUpload:       "Syllabus PDFs › ",
	modeConfirmClear: "Delete all sessions? (y/N) ",
}

const rateStep = 0.25

// located is a render target together with the log entry it belongs to.
type located struct {
	index  int
	target render.Target
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the chat client.
type Model struct {
	ctx  context.Context
	deps Deps

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	focus      pane
	mode       inputMode
	style      string
	notice     string
	sessCursor int

	// Transient per-view state: reset whenever the current session changes.
	shown        string
	interactions map[int]*render.Interactions
	targets      []located
	cursor       int
	shownLen     int

	voiceNoticed bool
}

// New creates the model. ctx bounds every backend call and voice session.
func New(ctx context.Context, deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Capture == nil {
		deps.Capture = voice.NewCapture(nil, deps.Logger)
	}
	if deps.Playback == nil {
		deps.Playback = voice.NewPlayback(nil, deps.Logger)
	}
	if !backend.ValidStyle(deps.Style) {
		deps.Style = backend.StyleConcise
	}

	in := textinput.New()
	in.Prompt = modePrompts[modeAsk]
	in.Placeholder = "Ask about your syllabus"
	in.CharLimit = 2000
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctx:          ctx,
		deps:         deps,
		input:        in,
		spinner:      sp,
		style:        deps.Style,
		interactions: make(map[int]*render.Interactions),
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.storeOp(func(ctx context.Context) error {
			_, err := m.deps.Store.Resume(ctx)
			return err
		}),
		waitChanges(m.deps.Store.Changes()),
		m.spinner.Tick,
		textinput.Blink,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case changedMsg:
		m.refresh()
		return m, waitChanges(m.deps.Store.Changes())

	case repliedMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		m.refresh()
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		m.refresh()
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, nil

	case fragmentMsg:
		m.input.SetValue(voice.AppendFragment(m.input.Value(), msg.text))
		m.input.CursorEnd()
		return m, waitFragment(msg.ch)

	case captureEndedMsg:
		m.notice = ""
		return m, nil

	case speechDoneMsg:
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeConfirmClear {
		m.setMode(modeAsk)
		if msg.String() == "y" || msg.String() == "Y" {
			m.notice = "Clearing sessions…"
			return m, m.storeOp(m.deps.Store.ClearAll)
		}
		m.notice = ""
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		m.deps.Capture.Stop()
		m.deps.Playback.Stop()
		return m, tea.Quit
	case "tab":
		m.setFocus((m.focus + 1) % paneCount)
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus - 1 + paneCount) % paneCount)
		return m, nil
	case "esc":
		switch {
		case m.mode != modeAsk:
			m.setMode(modeAsk)
		case m.deps.Playback.Speaking():
			m.deps.Playback.Stop()
		case m.deps.Capture.Listening():
			m.deps.Capture.Stop()
		}
		return m, nil
	case "ctrl+e":
		return m, m.dispatch(m.deps.Router.GenerateExam)
	case "ctrl+n":
		return m, m.storeOp(func(ctx context.Context) error {
			_, err := m.deps.Store.Create(ctx)
			return err
		})
	case "ctrl+r":
		if m.deps.Store.Current() == "" {
			return m, nil
		}
		m.setMode(modeRename)
		if title, ok := m.deps.Store.Title(m.deps.Store.Current()); ok {
			m.input.SetValue(title)
			m.input.CursorEnd()
		}
		return m, nil
	case "ctrl+y":
		m.setMode(modeVideo)
		return m, nil
	case "ctrl+p":
		m.setMode(modeSolve)
		return m, nil
	case "ctrl+t":
		m.setMode(modeTrend)
		return m, nil
	case "ctrl+u":
		m.setMode(modeUpload)
		return m, nil
	case "ctrl+x":
		m.setMode(modeConfirmClear)
		return m, nil
	case "ctrl+s":
		m.style = nextStyle(m.style)
		m.notice = "Answer style: " + m.style
		return m, nil
	case "alt+m":
		return m.toggleCapture()
	case "alt+s":
		cmd := m.toggleSpeech()
		return m, cmd
	case "alt+-", "alt+=", "alt++":
		delta := rateStep
		if msg.String() == "alt+-" {
			delta = -rateStep
		}
		m.changeRate(delta)
		return m, nil
	}

	switch m.focus {
	case paneTimeline:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.refresh()
			}
			return m, nil
		case "down", "j":
			if m.cursor < len(m.targets)-1 {
				m.cursor++
				m.refresh()
			}
			return m, nil
		case "enter", " ":
			cmd := m.activate()
			return m, cmd
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case paneSessions:
		list := m.deps.Store.Sessions()
		switch msg.String() {
		case "up", "k":
			if m.sessCursor > 0 {
				m.sessCursor--
			}
		case "down", "j":
			if m.sessCursor < len(list)-1 {
				m.sessCursor++
			}
		case "enter":
			if m.sessCursor < len(list) {
				id := list[m.sessCursor].ID
				return m, m.storeOp(func(ctx context.Context) error { return m.deps.Store.Load(ctx, id) })
			}
		}
		return m, nil
	}

	if msg.Type == tea.KeyEnter {
		return m.submit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs the intent of the current input mode with the typed text.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	mode := m.mode
	m.input.Reset()
	m.setMode(modeAsk)
	m.notice = ""

	router := m.deps.Router
	switch mode {
	case modeAsk:
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		style := m.style
		return m, m.dispatch(func(ctx context.Context) (message.Message, error) {
			return router.SendQuestion(ctx, text, backend.ModeSyllabus, style)
		})
	case modeVideo:
		return m, m.dispatch(func(ctx context.Context) (message.Message, error) {
			return router.AnalyzeVideo(ctx, text)
		})
	case modeSolve, modeTrend:
		pm := dispatch.PYQSolve
		if mode == modeTrend {
			pm = dispatch.PYQTrend
		}
		return m, m.submitPaper(strings.TrimSpace(text), pm)
	case modeUpload:
		return m, m.uploadSyllabus(strings.Fields(text))
	case modeRename:
		id := m.deps.Store.Current()
		return m, m.storeOp(func(ctx context.Context) error { return m.deps.Store.Rename(ctx, id, text) })
	}
	return m, nil
}

// activate performs the focused target's interaction.
func (m *Model) activate() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.targets) {
		return nil
	}
	lt := m.targets[m.cursor]
	entry, ok := m.deps.Store.Log().At(lt.index)
	if !ok {
		return nil
	}

	switch lt.target.Kind {
	case render.TargetOption:
		exam, ok := entry.(message.AIExam)
		if !ok || exam.Exam == nil || lt.target.Question >= len(exam.Exam.MCQs) {
			return nil
		}
		options := exam.Exam.MCQs[lt.target.Question].Options
		if lt.target.Option >= len(options) {
			return nil
		}
		m.interactionsFor(lt.index).Choose(exam.Exam, lt.target.Question, options[lt.target.Option])
		m.refresh()

	case render.TargetReveal:
		m.interactionsFor(lt.index).Toggle(lt.target.Key)
		m.refresh()

	case render.TargetAction:
		ask, ok := entry.(message.SystemAsk)
		if !ok {
			return nil
		}
		style := m.style
		router := m.deps.Router
		return m.dispatch(func(ctx context.Context) (message.Message, error) {
			return router.RetryOnInternet(ctx, ask, style)
		})
	}
	return nil
}

func (m *Model) interactionsFor(i int) *render.Interactions {
	in, ok := m.interactions[i]
	if !ok {
		in = render.NewInteractions()
		m.interactions[i] = in
	}
	return in
}

// ── Voice ─────────────────

func (m Model) toggleCapture() (tea.Model, tea.Cmd) {
	if m.deps.Capture.Listening() {
		m.deps.Capture.Stop()
		m.notice = ""
		return m, nil
	}
	ch, err := m.deps.Capture.Start(m.ctx)
	if err != nil {
		if errors.Is(err, voice.ErrUnsupported) {
			if !m.voiceNoticed {
				m.voiceNoticed = true
				m.notice = "Voice input is not supported on this system."
			}
			return m, nil
		}
		m.notice = err.Error()
		return m, nil
	}
	m.setFocus(paneInput)
	m.notice = "Listening… (alt+m to stop)"
	return m, waitFragment(ch)
}

// toggleSpeech reads the latest answer aloud, or stops the current reading.
func (m *Model) toggleSpeech() tea.Cmd {
	if m.deps.Playback.Speaking() {
		m.deps.Playback.Stop()
		m.notice = "Playback stopped."
		return nil
	}
	text := message.LastAnswer(m.deps.Store.Log().Snapshot())
	if text == "" {
		m.notice = "Nothing to read yet."
		return nil
	}
	done, started := m.deps.Playback.Speak(text)
	if !started {
		m.notice = "Speech output is not available on this system."
		return nil
	}
	m.notice = ""
	return func() tea.Msg {
		<-done
		return speechDoneMsg{}
	}
}

func (m *Model) changeRate(delta float64) {
	rate := m.deps.Playback.Rate() + delta
	if err := m.deps.Playback.SetRate(rate); err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = fmt.Sprintf("Voice speed %.2gx", rate)
	if m.deps.OnRate != nil {
		m.deps.OnRate(rate)
	}
}

// ── Helpers ───────────────────

func (m *Model) setMode(mode inputMode) {
	m.mode = mode
	m.input.Prompt = modePrompts[mode]
	if mode != modeAsk {
		m.input.Reset()
		m.setFocus(paneInput)
	}
}

func (m *Model) setFocus(p pane) {
	m.focus = p
	if p == paneInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	m.refresh()
}

func nextStyle(cur string) string {
	for i, s := range backend.Styles {
		if s == cur {
			return backend.Styles[(i+1)%len(backend.Styles)]
		}
	}
	return backend.Styles[0]
}

// Run starts the chat client and blocks until the user quits.
func Run(ctx context.Context, deps Deps) error {
	p := tea.NewProgram(New(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
