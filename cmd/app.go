package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"

	"github.com/fakeyudi/syllabus/internal/backend"
	"github.com/fakeyudi/syllabus/internal/dispatch"
	"github.com/fakeyudi/syllabus/internal/message"
	"github.com/fakeyudi/syllabus/internal/render"
	"github.com/fakeyudi/syllabus/internal/session"
)

// app wires the controllers shared by the chat and the subcommands.
type app struct {
	client *backend.Client
	store  *session.Store
	router *dispatch.Router
}

func newApp() (*app, error) {
	client, err := backend.New(cfg.BackendURL,
		backend.WithTimeout(cfg.RequestTimeout),
		backend.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	state, err := session.NewStateStore()
	if err != nil {
		return nil, err
	}
	store := session.NewStore(client,
		session.WithLogger(logger),
		session.WithState(state),
		session.WithBackendURL(client.BaseURL()))
	return &app{
		client: client,
		store:  store,
		router: dispatch.New(client, store, dispatch.WithLogger(logger)),
	}, nil
}

// open makes id current, or resumes the remembered session when id is empty.
func (a *app) open(ctx context.Context, id string) error {
	if id != "" {
		if err := a.store.Load(ctx, id); err != nil {
			return err
		}
		a.store.List(ctx)
		return nil
	}
	_, err := a.store.Resume(ctx)
	return err
}

// printer draws messages for non-interactive output. Colour and glamour
// styling are only used when w is a terminal.
type printer struct {
	w      io.Writer
	drawer *render.Drawer
	width  int
}

func newPrinter(w io.Writer) *printer {
	style, width := "notty", 80
	if f, ok := w.(*os.File); ok && term.IsTerminal(f.Fd()) {
		style = cfg.MarkdownStyle
		if tw, _, err := term.GetSize(f.Fd()); err == nil && tw > 0 {
			width = tw
		}
	}
	return &printer{w: w, drawer: render.NewDrawer(style), width: width}
}

func (p *printer) print(in *render.Interactions, msgs ...message.Message) {
	for _, m := range msgs {
		fmt.Fprintln(p.w, p.drawer.Draw(render.Select(m, in), render.Options{Width: p.width, Cursor: -1}))
	}
}
