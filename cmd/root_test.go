package cmd

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/syllabus/internal/backend/fake"
	"github.com/fakeyudi/syllabus/internal/config"
)

// executeCommand runs root with args and returns combined stdout/stderr.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	return executeCommandWithInput(root, strings.NewReader(""), args...)
}

func executeCommandWithInput(root *cobra.Command, in io.Reader, args ...string) (output string, err error) {
	resetFlagVars()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(in)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// resetFlagVars restores flag defaults; cobra keeps the previous run's values.
func resetFlagVars() {
	verbose = false
	askInternet, askStyle, studySession, examAnswers = false, "", "", false
	clearYes = false
	exportFormat, exportSession, exportOutput = "markdown", "", ""
	plainOutput = false
	watchAs, watchExisting = "syllabus", false
	speakRate, speakLast = 0, false
}

// testEnv isolates config, state and logs in temp dirs and points the client
// at an in-memory backend.
func testEnv(t *testing.T) *fake.Server {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv(config.EnvLogLevel, "")

	srv := fake.New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Setenv(config.EnvBackendURL, ts.URL)
	return srv
}
