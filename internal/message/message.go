// Package message defines the closed set of conversation messages shown in
// the chat timeline, the boundary decoding that turns backend payloads into
// those variants, and the append-only Log that holds a session's transcript.
package message

// Kind identifies a Message variant.
type Kind string

const (
	KindUserText  Kind = "user_text"
	KindAIText    Kind = "ai_text"
	KindAIExam    Kind = "ai_exam"
	KindAIPYQ     Kind = "ai_pyq"
	KindAITrend   Kind = "ai_trend"
	KindSystemAsk Kind = "system_ask"
	KindDegraded  Kind = "degraded"
)

// Role is the speaker of a message as persisted by the backend.
type Role string

const (
	RoleUser      Role = "user"
	RoleAI        Role = "ai"
	RoleSystemAsk Role = "system_ask"
)

// Answer sources reported by the backend (or set locally for video summaries).
const (
	SourceSyllabus = "syllabus"
	SourceInternet = "internet"
	SourceVideo    = "youtube"
)

// TagVideoSummary marks AI text produced by video analysis.
const TagVideoSummary = "Video Summary"

// Message is one entry in the conversation. The set of implementations is
// closed: only the types in this package satisfy it.
type Message interface {
	Kind() Kind
	Role() Role
	// Text returns the plain text of the message, used for playback and
	// plain-text transcripts. Structured variants return a short label.
	Text() string
	isMessage()
}

// UserText is a request echoed into the transcript.
type UserText struct {
	Content string
}

// AIText is a plain answer. Source and Tag may be empty.
type AIText struct {
	Content string
	Source  string
	Tag     string
}

// AIExam carries a generated mock exam. Exam is nil when the backend
// returned a document that failed validation.
type AIExam struct {
	Exam *Exam
}

// AIPYQ carries solutions for an uploaded past paper.
type AIPYQ struct {
	Solutions []PYQSolution
}

// AITrend carries a topic trend analysis. Trends is nil when the embedded
// analysis could not be parsed.
type AITrend struct {
	Trends *Trends
}

// SystemAsk offers an internet fallback for a question the syllabus could
// not answer.
type SystemAsk struct {
	Content          string
	OriginalQuestion string
}

// Degraded stands in for a persisted message whose shape could not be
// validated.
type Degraded struct {
	Raw    string
	Reason string
}

func (UserText) Kind() Kind  { return KindUserText }
func (AIText) Kind() Kind    { return KindAIText }
func (AIExam) Kind() Kind    { return KindAIExam }
func (AIPYQ) Kind() Kind     { return KindAIPYQ }
func (AITrend) Kind() Kind   { return KindAITrend }
func (SystemAsk) Kind() Kind { return KindSystemAsk }
func (Degraded) Kind() Kind  { return KindDegraded }

func (UserText) Role() Role  { return RoleUser }
func (AIText) Role() Role    { return RoleAI }
func (AIExam) Role() Role    { return RoleAI }
func (AIPYQ) Role() Role     { return RoleAI }
func (AITrend) Role() Role   { return RoleAI }
func (SystemAsk) Role() Role { return RoleSystemAsk }
func (Degraded) Role() Role  { return RoleAI }

func (m UserText) Text() string  { return m.Content }
func (m AIText) Text() string    { return m.Content }
func (AIExam) Text() string      { return "Mock Exam" }
func (AIPYQ) Text() string       { return "Solved Solutions" }
func (AITrend) Text() string     { return "Trends" }
func (m SystemAsk) Text() string { return m.Content }
func (m Degraded) Text() string  { return m.Reason }

func (UserText) isMessage()  {}
func (AIText) isMessage()    {}
func (AIExam) isMessage()    {}
func (AIPYQ) isMessage()     {}
func (AITrend) isMessage()   {}
func (SystemAsk) isMessage() {}
func (Degraded) isMessage()  {}
