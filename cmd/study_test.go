package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/syllabus/internal/dispatch"
)

func writePDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func TestAskPrintsAnswer(t *testing.T) {
	srv := testEnv(t)
	srv.SetSyllabus(true)
	srv.Teach("paging", "Paging maps pages to frames.")

	out, err := executeCommand(rootCmd, "ask", "what", "is", "paging")
	require.NoError(t, err)
	assert.Contains(t, out, "Paging maps pages to frames.")
	assert.Contains(t, out, "Syllabus Verified")
}

func TestAskMissingSuggestsInternet(t *testing.T) {
	srv := testEnv(t)
	srv.SetSyllabus(true)

	out, err := executeCommand(rootCmd, "ask", "who won the cup")
	require.NoError(t, err)
	assert.Contains(t, out, "Topic not in Syllabus.")
	assert.Contains(t, out, "--internet")

	out, err = executeCommand(rootCmd, "ask", "--internet", "--style", "detailed", "who won the cup")
	require.NoError(t, err)
	assert.Contains(t, out, "General knowledge (detailed): who won the cup")
}

func TestAskRejectsUnknownStyle(t *testing.T) {
	testEnv(t)
	_, err := executeCommand(rootCmd, "ask", "--style", "poetic", "paging")
	assert.ErrorContains(t, err, "unknown answer style")
}

func TestAskResumesRememberedSession(t *testing.T) {
	srv := testEnv(t)
	srv.SetSyllabus(true)
	srv.Teach("paging", "Frames.")

	_, err := executeCommand(rootCmd, "ask", "what is paging")
	require.NoError(t, err)
	_, err = executeCommand(rootCmd, "ask", "paging again")
	require.NoError(t, err)

	ids := srv.SessionIDs()
	require.Len(t, ids, 1)
	st, err := loadState()
	require.NoError(t, err)
	assert.Equal(t, ids[0], st.CurrentSessionID)

	_, err = executeCommand(rootCmd, "ask", "--session", "nope", "paging")
	assert.Error(t, err)
}

func TestUploadThenExamWithAnswers(t *testing.T) {
	srv := testEnv(t)
	srv.SetExamJSON(`{"mcqs":[{"question":"Which is a page replacement policy?","options":["FCFS","LRU"],"correct_answer":"LRU"}],
		"theory_5_marks":[{"question":"Explain thrashing.","answer":"Too much paging, too little progress."}]}`)

	out, err := executeCommand(rootCmd, "exam")
	require.NoError(t, err)
	assert.Contains(t, out, "Error generating exam")

	out, err = executeCommand(rootCmd, "upload", writePDF(t, "os.pdf"))
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded 1 file(s)")
	assert.True(t, srv.HasSyllabus())

	out, err = executeCommand(rootCmd, "exam")
	require.NoError(t, err)
	assert.Contains(t, out, "Which is a page replacement policy?")
	assert.NotContains(t, out, "Too much paging")

	out, err = executeCommand(rootCmd, "exam", "--answers")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ LRU")
	assert.Contains(t, out, "Too much paging, too little progress.")
}

func TestUploadMissingFile(t *testing.T) {
	testEnv(t)
	_, err := executeCommand(rootCmd, "upload", filepath.Join(t.TempDir(), "none.pdf"))
	assert.Error(t, err)
}

func TestPYQCommands(t *testing.T) {
	srv := testEnv(t)
	srv.SetSyllabus(true)
	paper := writePDF(t, "2023.pdf")

	out, err := executeCommand(rootCmd, "pyq", "solve", paper)
	require.NoError(t, err)
	assert.Contains(t, out, "Solved Solutions")
	assert.Contains(t, out, "OUT OF SYLLABUS")

	out, err = executeCommand(rootCmd, "pyq", "trend", paper)
	require.NoError(t, err)
	assert.Contains(t, out, "CPU Scheduling")
}

func TestVideoCommand(t *testing.T) {
	srv := testEnv(t)
	srv.SetSyllabus(true)

	out, err := executeCommand(rootCmd, "video", "https://www.youtube.com/watch?v=abc123")
	require.NoError(t, err)
	assert.Contains(t, out, "Video abc123 covers material")

	_, err = executeCommand(rootCmd, "video", " ")
	assert.ErrorIs(t, err, dispatch.ErrEmptyURL)
}

func TestInboxHandlerModes(t *testing.T) {
	testEnv(t)
	_, err := inboxHandler(rootCmd, nil, "bogus")
	assert.ErrorContains(t, err, "unknown --as")
	for _, as := range []string{"syllabus", "solve", "trend"} {
		h, err := inboxHandler(rootCmd, nil, as)
		require.NoError(t, err)
		assert.NotNil(t, h)
	}
}

func TestWatchExistingFlag(t *testing.T) {
	t.Cleanup(resetFlagVars)
	require.NoError(t, watchCmd.Flags().Set("existing", "true"))
	w := newWatcher("drop")
	assert.Equal(t, "drop", w.Dir)
	assert.True(t, w.Existing)

	resetFlagVars()
	assert.False(t, newWatcher("drop").Existing)
}

func TestSpeakNeedsText(t *testing.T) {
	testEnv(t)
	_, err := executeCommand(rootCmd, "speak")
	assert.ErrorContains(t, err, "nothing to read")
}
