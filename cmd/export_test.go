package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fakeyudi/syllabus/internal/transcript"
)

func TestExportThenView(t *testing.T) {
	srv := testEnv(t)
	srv.SetSyllabus(true)
	srv.Teach("paging", "Paging maps pages to frames.")
	_, err := executeCommand(rootCmd, "ask", "what is paging")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "paging.md")
	out, err := executeCommand(rootCmd, "export", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	out, err = executeCommand(rootCmd, "view", "--plain", path)
	require.NoError(t, err)
	assert.Contains(t, out, "## what is paging")
	assert.Contains(t, out, "[user] what is paging")
	assert.Contains(t, out, "[ai] Paging maps pages to frames.")

	out, err = executeCommand(rootCmd, "view", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# what is paging")
	assert.Contains(t, out, "Syllabus Verified")
}

func TestExportJSONToStdout(t *testing.T) {
	srv := testEnv(t)
	srv.Seed("s1", "Paging", []byte(`{"role":"user","content":"hi"}`))

	out, err := executeCommand(rootCmd, "export", "--format", "json", "--session", "s1")
	require.NoError(t, err)
	var tr transcript.Transcript
	require.NoError(t, json.Unmarshal([]byte(out), &tr))
	assert.Equal(t, "s1", tr.SessionID)
	assert.Equal(t, "Paging", tr.Title)
	assert.Len(t, tr.Messages, 1)

	_, err = executeCommand(rootCmd, "export", "--format", "pdf")
	assert.Error(t, err)
}

func TestViewErrors(t *testing.T) {
	testEnv(t)
	_, err := executeCommand(rootCmd, "view", filepath.Join(t.TempDir(), "none.md"))
	assert.ErrorContains(t, err, "file not found")

	bad := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(bad, []byte("# just notes\n"), 0o644))
	_, err = executeCommand(rootCmd, "view", bad)
	assert.ErrorContains(t, err, "not a syllabus transcript")
}

// Every message of an exported session appears, in order, in the plain view.
func TestViewPlainListsEveryMessage(t *testing.T) {
	testEnv(t)
	dir := t.TempDir()
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "n")
		var raws []json.RawMessage
		var want []string
		for i := 0; i < n; i++ {
			text := rapid.StringMatching(`[a-z]{1,12}`).Draw(rt, "text")
			role := rapid.SampledFrom([]string{"user", "ai"}).Draw(rt, "role")
			raw, _ := json.Marshal(map[string]string{"role": role, "content": text})
			raws = append(raws, raw)
			want = append(want, "["+role+"] "+text)
		}
		tr := &transcript.Transcript{Version: transcript.Version, SessionID: "s", Title: "T", Messages: raws}
		data, err := (&transcript.JSONRenderer{}).Render(tr)
		if err != nil {
			rt.Fatalf("Render: %v", err)
		}
		path := filepath.Join(dir, "t.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			rt.Fatal(err)
		}

		out, err := executeCommand(rootCmd, "view", "--plain", path)
		if err != nil {
			rt.Fatalf("view: %v", err)
		}
		pos := 0
		for _, w := range want {
			i := indexFrom(out, w, pos)
			if i < 0 {
				rt.Fatalf("missing %q after offset %d in:\n%s", w, pos, out)
			}
			pos = i + len(w)
		}
	})
}

func indexFrom(s, sub string, from int) int {
	for i := from; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
