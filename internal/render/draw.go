package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/syllabus/internal/message"
)

// ── Styles ────────────

var (
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	aiLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	syllabusBadgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	internetBadgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	outBadgeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	errorCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)

	askStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

	correctStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("237"))
	answerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(4)
	probStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
)

// Options controls Draw.
type Options struct {
	Width int
	// Cursor indexes Targets(v); negative means nothing is focused.
	Cursor int
}

// Drawer draws views as terminal text. Markdown goes through glamour with a
// renderer cached per width.
type Drawer struct {
	style string

	mu       sync.Mutex
	width    int
	markdown *glamour.TermRenderer
}

// NewDrawer returns a drawer using the named glamour style ("dark",
// "light", "notty"...). An empty style picks one from the terminal.
func NewDrawer(style string) *Drawer {
	return &Drawer{style: style}
}

func (d *Drawer) renderMarkdown(md string, width int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.markdown == nil || d.width != width {
		opts := []glamour.TermRendererOption{glamour.WithWordWrap(max(20, width-4))}
		if d.style == "" {
			opts = append(opts, glamour.WithAutoStyle())
		} else {
			opts = append(opts, glamour.WithStandardStyle(d.style))
		}
		r, err := glamour.NewTermRenderer(opts...)
		if err != nil {
			return md
		}
		d.markdown, d.width = r, width
	}
	out, err := d.markdown.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// Draw renders v.
func (d *Drawer) Draw(v View, opts Options) string {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	var sb strings.Builder
	focus := -1
	next := func() bool {
		focus++
		return focus == opts.Cursor
	}

	if v.Role == message.RoleUser {
		sb.WriteString(userLabelStyle.Render("You") + "\n")
		sb.WriteString(v.Body + "\n")
		return sb.String()
	}
	sb.WriteString(aiLabelStyle.Render("Assistant") + "\n")

	switch v.Kind {
	case message.KindAIText:
		sb.WriteString(d.renderMarkdown(v.Body, opts.Width) + "\n")
		sb.WriteString(badge(v.Badge, v.Badge.String()) + "\n")

	case message.KindSystemAsk:
		sb.WriteString(askStyle.Render(v.Body) + "\n")
		for _, a := range v.Actions {
			label := "[ " + a.Label + " ]"
			if next() {
				label = focusStyle.Render(label)
			}
			sb.WriteString("  " + label + "\n")
		}

	case message.KindAIExam:
		sb.WriteString(headerStyle.Render("Mock Exam") + "\n")
		if v.Error != "" {
			sb.WriteString(errorCardStyle.Render(v.Error) + "\n")
			break
		}
		for _, q := range v.Questions {
			sb.WriteString(fmt.Sprintf("\n%d. %s\n", q.Index+1, q.Question))
			for _, o := range q.Options {
				row := drawOption(o)
				if next() {
					row = focusStyle.Render(row)
				}
				sb.WriteString("   " + row + "\n")
			}
		}
		for _, t := range v.Theory {
			sb.WriteString("\n" + t.Question + "\n")
			label := "[ Reveal Answer ]"
			if t.Revealed {
				label = "[ Hide Answer ]"
			}
			if next() {
				label = focusStyle.Render(label)
			}
			sb.WriteString("   " + label + "\n")
			if t.Revealed {
				sb.WriteString(answerStyle.Render(t.Answer) + "\n")
			}
		}

	case message.KindAIPYQ:
		sb.WriteString(headerStyle.Render("Solved Solutions") + "\n")
		for i, s := range v.Solutions {
			sb.WriteString(fmt.Sprintf("\nQ%d: %s\n", i+1, s.Question))
			sb.WriteString(d.renderMarkdown(s.Answer, opts.Width) + "\n")
			sb.WriteString(badge(s.Badge, strings.ToUpper(s.Tag)) + "\n")
		}

	case message.KindAITrend:
		sb.WriteString(headerStyle.Render("Trends") + "\n")
		for _, t := range v.Trends {
			sb.WriteString(fmt.Sprintf("\n  %s  %s\n", lipgloss.NewStyle().Bold(true).Render(t.Topic), probStyle.Render(t.Probability)))
			if t.Reason != "" {
				sb.WriteString(dimStyle.Render("  "+t.Reason) + "\n")
			}
		}

	default:
		if v.Error != "" {
			sb.WriteString(errorCardStyle.Render(v.Error) + "\n")
		}
	}
	return sb.String()
}

func drawOption(o OptionView) string {
	switch o.State {
	case OptionCorrect:
		return correctStyle.Render("✓ " + o.Label)
	case OptionDimmed:
		return dimStyle.Render("· " + o.Label)
	}
	return "○ " + o.Label
}

func badge(b Badge, text string) string {
	if text == "" {
		return ""
	}
	switch b {
	case BadgeSyllabusVerified, BadgeInSyllabus:
		return syllabusBadgeStyle.Render("▌" + text)
	case BadgeOutOfSyllabus:
		return outBadgeStyle.Render("▌" + text)
	case BadgeInternetVerified:
		return internetBadgeStyle.Render("▌" + text)
	}
	return text
}
