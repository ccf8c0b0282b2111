package transcript

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fakeyudi/syllabus/internal/message"
	"github.com/fakeyudi/syllabus/internal/render"
)

const (
	versionSentinel = "<!-- syllabus-transcript-version: 1 -->"
	dataPrefix      = "<!-- syllabus-data: "
	dataSuffix      = " -->"
)

// Renderer serializes a Transcript.
type Renderer interface {
	Render(t *Transcript) ([]byte, error)
}

// RendererFor returns the renderer for a format name.
func RendererFor(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown transcript format %q (want markdown or json)", format)
}

// JSONRenderer renders a Transcript as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(t *Transcript) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// MarkdownRenderer renders a readable conversation with the transcript
// embedded as base64 JSON so it can be parsed back losslessly.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(t *Transcript) ([]byte, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, base64.StdEncoding.EncodeToString(payload), dataSuffix)

	title := t.Title
	if title == "" {
		title = "Untitled session"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "- Session: `%s`\n", t.SessionID)
	fmt.Fprintf(&sb, "- Exported: %s\n", t.ExportedAt.Format("2006-01-02 15:04:05 MST"))
	if t.Backend != "" {
		fmt.Fprintf(&sb, "- Backend: %s\n", t.Backend)
	}
	sb.WriteString("\n")

	msgs := t.Conversation()
	if len(msgs) == 0 {
		sb.WriteString("_No messages._\n")
	}
	for _, m := range msgs {
		writeMessage(&sb, render.Select(m, nil))
	}
	return []byte(sb.String()), nil
}

func writeMessage(sb *strings.Builder, v render.View) {
	if v.Role == message.RoleUser {
		fmt.Fprintf(sb, "## You\n\n%s\n\n", v.Body)
		return
	}
	sb.WriteString("## Assistant\n\n")

	switch v.Kind {
	case message.KindAIText:
		sb.WriteString(v.Body + "\n\n")
		fmt.Fprintf(sb, "_%s_\n\n", v.Badge)
	case message.KindSystemAsk:
		fmt.Fprintf(sb, "> %s\n\n", v.Body)
	case message.KindAIExam:
		sb.WriteString("### Mock Exam\n\n")
		if v.Error != "" {
			fmt.Fprintf(sb, "_%s_\n\n", v.Error)
			return
		}
		for _, q := range v.Questions {
			fmt.Fprintf(sb, "%d. %s\n", q.Index+1, q.Question)
			for _, o := range q.Options {
				fmt.Fprintf(sb, "   - %s\n", o.Label)
			}
		}
		if len(v.Questions) > 0 {
			sb.WriteString("\n")
		}
		for _, th := range v.Theory {
			fmt.Fprintf(sb, "**%s**\n\n%s\n\n", th.Question, th.Answer)
		}
	case message.KindAIPYQ:
		sb.WriteString("### Solved Solutions\n\n")
		for i, s := range v.Solutions {
			fmt.Fprintf(sb, "**Q%d: %s**\n\n%s\n\n`%s`\n\n", i+1, s.Question, s.Answer, s.Tag)
		}
	case message.KindAITrend:
		sb.WriteString("### Trends\n\n")
		if len(v.Trends) > 0 {
			sb.WriteString("| Topic | Probability | Reason |\n")
			sb.WriteString("|-------|-------------|--------|\n")
			for _, tr := range v.Trends {
				fmt.Fprintf(sb, "| %s | %s | %s |\n", tr.Topic, tr.Probability, tr.Reason)
			}
			sb.WriteString("\n")
		}
	default:
		fmt.Fprintf(sb, "_%s_\n\n", v.Error)
	}
}
