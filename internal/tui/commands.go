package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fakeyudi/syllabus/internal/backend"
	"github.com/fakeyudi/syllabus/internal/dispatch"
	"github.com/fakeyudi/syllabus/internal/message"
)

// Messages fed back into Update by commands.
type (
	changedMsg      struct{}
	repliedMsg      struct{ err error }
	openedMsg       struct{ err error }
	noticeMsg       string
	captureEndedMsg struct{}
	speechDoneMsg   struct{}
	fragmentMsg     struct {
		text string
		ch   <-chan string
	}
)

// waitChanges blocks until the store reports a change.
func waitChanges(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// waitFragment delivers the next recognized fragment, or captureEndedMsg once
// the capture session is over.
func waitFragment(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		text, ok := <-ch
		if !ok {
			return captureEndedMsg{}
		}
		return fragmentMsg{text: text, ch: ch}
	}
}

// dispatch runs a router call off the event loop.
func (m Model) dispatch(fn func(ctx context.Context) (message.Message, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		_, err := fn(ctx)
		return repliedMsg{err: err}
	}
}

// storeOp runs a session store transition off the event loop.
func (m Model) storeOp(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return openedMsg{err: fn(ctx)}
	}
}

// submitPaper reads the paper at path and submits it. An empty path is
// passed through so the router reports the missing file.
func (m Model) submitPaper(path string, mode dispatch.PYQMode) tea.Cmd {
	ctx, router := m.ctx, m.deps.Router
	return func() tea.Msg {
		var file *backend.Upload
		if path != "" {
			up, err := backend.ReadUpload(path)
			if err != nil {
				return noticeMsg(err.Error())
			}
			file = &up
		}
		_, err := router.SubmitPYQ(ctx, file, mode)
		return repliedMsg{err: err}
	}
}

func (m Model) uploadSyllabus(paths []string) tea.Cmd {
	ctx, router := m.ctx, m.deps.Router
	return func() tea.Msg {
		files := make([]backend.Upload, 0, len(paths))
		for _, p := range paths {
			up, err := backend.ReadUpload(p)
			if err != nil {
				return noticeMsg(err.Error())
			}
			files = append(files, up)
		}
		if err := router.UploadSyllabus(ctx, files...); err != nil {
			return noticeMsg("Upload failed: " + err.Error())
		}
		return noticeMsg(fmt.Sprintf("Syllabus uploaded (%d file(s)).", len(files)))
	}
}
