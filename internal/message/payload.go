package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Exam is a generated mock exam.
type Exam struct {
	MCQs    []MCQ    `json:"mcqs"`
	Theory2 []Theory `json:"theory_2_marks,omitempty"`
	Theory5 []Theory `json:"theory_5_marks,omitempty"`
}

// MCQ is a multiple-choice question with one correct option.
type MCQ struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Theory is a written question with a model answer.
type Theory struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TheoryItems returns the two-mark questions followed by the five-mark ones.
func (e *Exam) TheoryItems() []Theory {
	if e == nil {
		return nil
	}
	items := make([]Theory, 0, len(e.Theory2)+len(e.Theory5))
	items = append(items, e.Theory2...)
	return append(items, e.Theory5...)
}

// PYQSolution is the answer to one question extracted from a past paper.
type PYQSolution struct {
	Question string `json:"question"`
	Answer   string `json:"answer"` // markdown
	Tag      string `json:"tag"`
}

// OutOfSyllabus reports whether the solution's tag marks it as outside the
// syllabus. The rule is a case-insensitive substring match on "out".
func (s PYQSolution) OutOfSyllabus() bool {
	return strings.Contains(strings.ToLower(s.Tag), "out")
}

// Trends is a topic trend analysis of a past paper.
type Trends struct {
	Trends []Trend `json:"trends"`
}

// Trend is one likely topic.
type Trend struct {
	Topic       string      `json:"topic"`
	Reason      string      `json:"reason"`
	Probability Probability `json:"probability"`
}

// Probability is reported either as a label ("High") or a number (0.8).
type Probability string

func (p *Probability) UnmarshalJSON(data []byte) error {
	*p = Probability(scalarText(data))
	return nil
}

// Generated documents drift in their field types, so items decode
// leniently: scalars of any JSON type become text, a missing or non-array
// list is empty, and a non-object item is its zero value. Only the
// document shape checked by the schemas below is required.

func (e *Exam) UnmarshalJSON(data []byte) error {
	f, err := objectFields(data)
	if err != nil {
		return err
	}
	*e = Exam{
		MCQs:    decodeItems[MCQ](f["mcqs"]),
		Theory2: decodeItems[Theory](f["theory_2_marks"]),
		Theory5: decodeItems[Theory](f["theory_5_marks"]),
	}
	return nil
}

func (q *MCQ) UnmarshalJSON(data []byte) error {
	f, _ := objectFields(data)
	*q = MCQ{
		Question:      scalarText(f["question"]),
		Options:       textItems(f["options"]),
		CorrectAnswer: scalarText(f["correct_answer"]),
	}
	return nil
}

func (t *Theory) UnmarshalJSON(data []byte) error {
	f, _ := objectFields(data)
	*t = Theory{Question: scalarText(f["question"]), Answer: scalarText(f["answer"])}
	return nil
}

func (s *PYQSolution) UnmarshalJSON(data []byte) error {
	f, _ := objectFields(data)
	*s = PYQSolution{
		Question: scalarText(f["question"]),
		Answer:   scalarText(f["answer"]),
		Tag:      scalarText(f["tag"]),
	}
	return nil
}

func (t *Trends) UnmarshalJSON(data []byte) error {
	f, err := objectFields(data)
	if err != nil {
		return err
	}
	*t = Trends{Trends: decodeItems[Trend](f["trends"])}
	return nil
}

func (t *Trend) UnmarshalJSON(data []byte) error {
	f, _ := objectFields(data)
	*t = Trend{
		Topic:       scalarText(f["topic"]),
		Reason:      scalarText(f["reason"]),
		Probability: Probability(scalarText(f["probability"])),
	}
	return nil
}

// objectFields splits a JSON object into its raw fields. null yields an
// empty map.
func objectFields(data []byte) (map[string]json.RawMessage, error) {
	var f map[string]json.RawMessage
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// decodeItems decodes each element of a JSON array. Anything other than an
// array yields nil.
func decodeItems[T any](raw json.RawMessage) []T {
	var items []json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]T, len(items))
	for i, item := range items {
		_ = json.Unmarshal(item, &out[i])
	}
	return out
}

func textItems(raw json.RawMessage) []string {
	var items []json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = scalarText(item)
	}
	return out
}

// scalarText returns a JSON string's value, "" for null or absent, and the
// literal JSON text for anything else (numbers, booleans, nested values).
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

var (
	examSchema = mustCompile("exam", map[string]any{
		"type":     "object",
		"required": []any{"mcqs"},
		"properties": map[string]any{
			"mcqs": map[string]any{"type": "array"},
		},
	})
	trendSchema = mustCompile("trends", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"trends": map[string]any{"type": []any{"array", "null"}},
		},
	})
	pyqSchema = mustCompile("pyq", map[string]any{"type": "array"})
)

func mustCompile(name string, def map[string]any) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	url := "schema://" + name + ".json"
	if err := c.AddResource(url, def); err != nil {
		panic(fmt.Sprintf("message: add schema %s: %v", name, err))
	}
	return c.MustCompile(url)
}

// ParseExam parses a quiz document as returned in quiz_json. Any document
// that is not a JSON object with an mcqs array yields nil; every other field
// is decoded leniently.
func ParseExam(raw string) *Exam {
	var e Exam
	if err := decodeValidated([]byte(stripFence(raw)), examSchema, &e); err != nil {
		return nil
	}
	return &e
}

// ParseTrends parses the analysis document returned by trend analysis,
// yielding nil on any failure.
func ParseTrends(raw string) *Trends {
	var t Trends
	if err := decodeValidated([]byte(stripFence(raw)), trendSchema, &t); err != nil {
		return nil
	}
	return &t
}

// ParsePYQ decodes a pyq_solutions array. A null array yields no solutions.
func ParsePYQ(raw json.RawMessage) ([]PYQSolution, error) {
	if isNull(raw) {
		return nil, nil
	}
	var sols []PYQSolution
	if err := decodeValidated(raw, pyqSchema, &sols); err != nil {
		return nil, fmt.Errorf("invalid pyq solutions: %w", err)
	}
	return sols, nil
}

// decodeValidated checks data against schema before unmarshalling it into v.
func decodeValidated(data []byte, schema *jsonschema.Schema, v any) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return json.Unmarshal(data, v)
}

// stripFence removes a surrounding ```json fence, which generators sometimes
// leave in place.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}
