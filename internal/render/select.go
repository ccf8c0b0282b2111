// Package render maps conversation messages to presentation views. Select
// is pure: the same message and interaction state always yield the same
// view. Draw turns a view into terminal text.
package render

import (
	"fmt"
	"strings"

	"github.com/fakeyudi/syllabus/internal/backend"
	"github.com/fakeyudi/syllabus/internal/message"
)

// Badge classifies where an answer came from.
type Badge int

const (
	BadgeNone Badge = iota
	BadgeSyllabusVerified
	BadgeInternetVerified
	BadgeInSyllabus
	BadgeOutOfSyllabus
)

func (b Badge) String() string {
	switch b {
	case BadgeSyllabusVerified:
		return "Syllabus Verified"
	case BadgeInternetVerified:
		return "Internet Verified"
	case BadgeInSyllabus:
		return "In Syllabus"
	case BadgeOutOfSyllabus:
		return "Out of Syllabus"
	}
	return ""
}

// Outcome is the result of answering one multiple-choice question.
type Outcome int

const (
	Unanswered Outcome = iota
	Correct
	Wrong
)

// OptionState is how one option of a question is shown.
type OptionState int

const (
	OptionNeutral OptionState = iota
	OptionCorrect
	OptionDimmed
)

// ExamErrorText is shown for an exam whose document could not be used.
const ExamErrorText = "Error generating exam."

// View is the presentation shape of one message.
type View struct {
	Kind  message.Kind
	Role  message.Role
	Title string
	// Body is markdown for AI text and plain text otherwise.
	Body      string
	Badge     Badge
	Tag       string
	Error     string
	Questions []QuestionView
	Theory    []TheoryView
	Solutions []SolutionView
	Trends    []TrendView
	Actions   []Action
}

// QuestionView is one multiple-choice question.
type QuestionView struct {
	Index    int
	Question string
	Options  []OptionView
	Outcome  Outcome
}

// OptionView is one option of a question.
type OptionView struct {
	Label string
	State OptionState
}

// TheoryView is a theory question whose answer can be revealed.
type TheoryView struct {
	Key      string
	Question string
	Answer   string
	Revealed bool
}

// SolutionView is one solved past-paper question.
type SolutionView struct {
	Question string
	Answer   string
	Tag      string
	Badge    Badge
}

// TrendView is one predicted topic.
type TrendView struct {
	Topic       string
	Reason      string
	Probability string
}

// Action is something the user can trigger from a message.
type Action struct {
	Label    string
	Question string
	Mode     string
}

// Interactions holds the transient state of one message: MCQ outcomes by
// question index and reveal flags by theory key. It is never persisted.
type Interactions struct {
	outcomes map[int]Outcome
	revealed map[string]bool
}

// NewInteractions returns empty interaction state.
func NewInteractions() *Interactions {
	return &Interactions{outcomes: map[int]Outcome{}, revealed: map[string]bool{}}
}

// Choose records option as the answer to question q of exam. Answering
// again replaces the previous outcome.
func (in *Interactions) Choose(exam *message.Exam, q int, option string) Outcome {
	if exam == nil || q < 0 || q >= len(exam.MCQs) {
		return Unanswered
	}
	out := Wrong
	if option == exam.MCQs[q].CorrectAnswer {
		out = Correct
	}
	if in.outcomes == nil {
		in.outcomes = map[int]Outcome{}
	}
	in.outcomes[q] = out
	return out
}

// Outcome returns the recorded outcome of question q.
func (in *Interactions) Outcome(q int) Outcome {
	if in == nil {
		return Unanswered
	}
	return in.outcomes[q]
}

// Toggle flips the reveal flag of a theory item and returns the new value.
func (in *Interactions) Toggle(key string) bool {
	if in.revealed == nil {
		in.revealed = map[string]bool{}
	}
	in.revealed[key] = !in.revealed[key]
	return in.revealed[key]
}

// Revealed reports whether the theory item key is revealed.
func (in *Interactions) Revealed(key string) bool {
	if in == nil {
		return false
	}
	return in.revealed[key]
}

// TheoryKey is the stable key of the i-th theory item, counting the
// two-mark questions before the five-mark ones.
func TheoryKey(i int) string { return fmt.Sprintf("th-%d", i) }

// Select derives the view of m. in may be nil for a message nobody has
// interacted with.
func Select(m message.Message, in *Interactions) View {
	v := View{Kind: m.Kind(), Role: m.Role(), Title: m.Text()}
	switch m := m.(type) {
	case message.UserText:
		v.Body = m.Content
	case message.AIText:
		v.Body = m.Content
		v.Tag = m.Tag
		v.Badge = textBadge(m.Source, m.Tag)
	case message.SystemAsk:
		v.Body = m.Content
		v.Actions = []Action{{
			Label:    "Search the internet",
			Question: m.OriginalQuestion,
			Mode:     backend.ModeInternet,
		}}
	case message.AIExam:
		selectExam(&v, m.Exam, in)
	case message.AIPYQ:
		for _, s := range m.Solutions {
			b := BadgeInSyllabus
			if s.OutOfSyllabus() {
				b = BadgeOutOfSyllabus
			}
			v.Solutions = append(v.Solutions, SolutionView{Question: s.Question, Answer: s.Answer, Tag: s.Tag, Badge: b})
		}
	case message.AITrend:
		if m.Trends != nil {
			for _, t := range m.Trends.Trends {
				v.Trends = append(v.Trends, TrendView{Topic: t.Topic, Reason: t.Reason, Probability: string(t.Probability)})
			}
		}
	case message.Degraded:
		v.Error = "Unreadable message: " + m.Reason
	}
	return v
}

// textBadge is syllabus-verified when the source is the syllabus or the tag
// mentions it, regardless of the other field.
func textBadge(source, tag string) Badge {
	if source == message.SourceSyllabus || strings.Contains(strings.ToLower(tag), "syllabus") {
		return BadgeSyllabusVerified
	}
	return BadgeInternetVerified
}

func selectExam(v *View, exam *message.Exam, in *Interactions) {
	if exam == nil {
		v.Error = ExamErrorText
		return
	}
	for i, q := range exam.MCQs {
		qv := QuestionView{Index: i, Question: q.Question, Outcome: in.Outcome(i)}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, OptionView{Label: o, State: optionState(qv.Outcome, o == q.CorrectAnswer)})
		}
		v.Questions = append(v.Questions, qv)
	}
	for i, t := range exam.TheoryItems() {
		key := TheoryKey(i)
		v.Theory = append(v.Theory, TheoryView{Key: key, Question: t.Question, Answer: t.Answer, Revealed: in.Revealed(key)})
	}
}

func optionState(out Outcome, isCorrect bool) OptionState {
	switch {
	case out == Correct && isCorrect:
		return OptionCorrect
	case out == Unanswered:
		return OptionNeutral
	default:
		return OptionDimmed
	}
}
