package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/syllabus/internal/backend"
	"github.com/fakeyudi/syllabus/internal/backend/fake"
)

func newClient(t *testing.T) (*backend.Client, *fake.Server) {
	t.Helper()
	srv := fake.New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	c, err := backend.New(ts.URL+"/", backend.WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c, srv
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := backend.New("ftp://example.com")
	assert.Error(t, err)
	_, err = backend.New("::::")
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t)

	id, err := c.NewSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	list, err := c.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []backend.SessionSummary{{ID: id, Title: "New Chat"}}, list)

	require.NoError(t, c.RenameSession(ctx, id, "Midterm Prep"))
	title, _ := srv.Title(id)
	assert.Equal(t, "Midterm Prep", title)

	msgs, err := c.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, c.ClearSessions(ctx))
	list, err = c.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLoadMissingSessionIsNotFound(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.LoadSession(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrNotFound))

	var se *backend.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "Not Found", se.Detail)
}

func TestChatStatuses(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t)

	resp, err := c.Chat(ctx, backend.ChatRequest{SessionID: "s", Question: "what is paging", Mode: backend.ModeSyllabus, Style: backend.StyleConcise})
	require.NoError(t, err)
	assert.Equal(t, backend.StatusNoSyllabus, resp.Status)

	srv.SetSyllabus(true)
	srv.Teach("paging", "Paging splits memory into frames.")

	resp, err = c.Chat(ctx, backend.ChatRequest{SessionID: "s", Question: "what is paging", Mode: backend.ModeSyllabus})
	require.NoError(t, err)
	assert.Equal(t, "Paging splits memory into frames.", resp.Answer)
	assert.Equal(t, "syllabus", resp.Source)

	resp, err = c.Chat(ctx, backend.ChatRequest{SessionID: "s", Question: "who won the cup", Mode: backend.ModeSyllabus})
	require.NoError(t, err)
	assert.Equal(t, backend.StatusMissing, resp.Status)

	resp, err = c.Chat(ctx, backend.ChatRequest{SessionID: "s", Question: "who won the cup", Mode: backend.ModeInternet, Style: backend.StyleDetailed})
	require.NoError(t, err)
	assert.Equal(t, "internet", resp.Source)
}

func TestUploadsUseMultipartFilesField(t *testing.T) {
	var gotName, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(data)
		_, _ = io.WriteString(w, `{"analysis": "{\"trends\": []}"}`)
	}))
	defer ts.Close()

	c, err := backend.New(ts.URL)
	require.NoError(t, err)

	resp, err := c.AnalyzeTrends(context.Background(), backend.Upload{Name: "paper.pdf", Data: []byte("%PDF-1.4")})
	require.NoError(t, err)
	assert.Equal(t, "paper.pdf", gotName)
	assert.Equal(t, "%PDF-1.4", gotBody)
	assert.Equal(t, `{"trends": []}`, resp.Analysis)
}

func TestUploadSyllabusRequiresFiles(t *testing.T) {
	c, _ := newClient(t)
	assert.Error(t, c.UploadSyllabus(context.Background()))
}

func TestExamAndPYQ(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t)

	_, err := c.GenerateExam(ctx, "ID:1")
	var se *backend.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "Upload PDF first", se.Detail)

	require.NoError(t, c.UploadSyllabus(ctx, backend.Upload{Name: "os.pdf", Data: []byte("x")}))
	assert.True(t, srv.HasSyllabus())

	exam, err := c.GenerateExam(ctx, "ID:2")
	require.NoError(t, err)
	assert.Contains(t, exam.QuizJSON, "mcqs")

	pyq, err := c.SolvePYQ(ctx, backend.Upload{Name: "p.pdf", Data: []byte("x")})
	require.NoError(t, err)
	var sols []map[string]string
	require.NoError(t, json.Unmarshal(pyq.Solutions, &sols))
	assert.Len(t, sols, len(fake.DefaultSolutions))
}

func TestTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := backend.New(url)
	require.NoError(t, err)
	_, err = c.AnalyzeVideo(context.Background(), "https://youtu.be/abc")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "backend analyze video"))
}

func TestMalformedResponseBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	}))
	defer ts.Close()

	c, err := backend.New(ts.URL)
	require.NoError(t, err)
	_, err = c.ListSessions(context.Background())
	assert.ErrorContains(t, err, "decode response")
}
