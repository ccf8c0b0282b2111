package render

// TargetKind identifies what an interactive target does.
type TargetKind int

const (
	TargetOption TargetKind = iota
	TargetReveal
	TargetAction
)

// Target is one focusable element of a view, in display order.
type Target struct {
	Kind     TargetKind
	Question int
	Option   int
	Key      string
	Action   int
}

// Targets lists the focusable elements of v: every option of every
// question, then every theory reveal, then every action.
func Targets(v View) []Target {
	var out []Target
	for _, q := range v.Questions {
		for j := range q.Options {
			out = append(out, Target{Kind: TargetOption, Question: q.Index, Option: j})
		}
	}
	for _, t := range v.Theory {
		out = append(out, Target{Kind: TargetReveal, Key: t.Key})
	}
	for i := range v.Actions {
		out = append(out, Target{Kind: TargetAction, Action: i})
	}
	return out
}
