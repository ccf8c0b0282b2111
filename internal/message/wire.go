package message

import (
	"encoding/json"
	"fmt"
)

// Wire types of structured AI messages.
const (
	wireTypeExam  = "exam"
	wireTypePYQ   = "pyq"
	wireTypeTrend = "trend"
)

// Wire is the persisted shape of a message, shared by the backend's session
// history and exported transcripts.
type Wire struct {
	Role             Role            `json:"role"`
	Type             string          `json:"type,omitempty"`
	Content          string          `json:"content,omitempty"`
	Source           string          `json:"source,omitempty"`
	Tag              string          `json:"tag,omitempty"`
	OriginalQuestion string          `json:"originalQuestion,omitempty"`
	Data             json.RawMessage `json:"data,omitempty"`
}

// Decode validates a persisted message and maps it onto the closed variant
// set. Shapes that cannot be mapped become Degraded; Decode never fails.
func Decode(raw json.RawMessage) Message {
	var w Wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Degraded{Raw: string(raw), Reason: "malformed message"}
	}
	m, err := fromWire(w)
	if err != nil {
		return Degraded{Raw: string(raw), Reason: err.Error()}
	}
	return m
}

// DecodeAll decodes every entry of a persisted history in order.
func DecodeAll(raws []json.RawMessage) []Message {
	out := make([]Message, 0, len(raws))
	for _, r := range raws {
		out = append(out, Decode(r))
	}
	return out
}

func fromWire(w Wire) (Message, error) {
	switch w.Role {
	case RoleUser:
		return UserText{Content: w.Content}, nil
	case RoleSystemAsk:
		return SystemAsk{Content: w.Content, OriginalQuestion: w.OriginalQuestion}, nil
	case RoleAI:
	default:
		return nil, fmt.Errorf("unknown role %q", w.Role)
	}

	switch w.Type {
	case "":
		return AIText{Content: w.Content, Source: w.Source, Tag: w.Tag}, nil
	case wireTypeExam:
		// A null or invalid exam is a legitimate committed state: the
		// renderer shows the error card for it.
		var e Exam
		if isNull(w.Data) || decodeValidated(w.Data, examSchema, &e) != nil {
			return AIExam{}, nil
		}
		return AIExam{Exam: &e}, nil
	case wireTypeTrend:
		var t Trends
		if isNull(w.Data) || decodeValidated(w.Data, trendSchema, &t) != nil {
			return AITrend{}, nil
		}
		return AITrend{Trends: &t}, nil
	case wireTypePYQ:
		sols, err := ParsePYQ(w.Data)
		if err != nil {
			return nil, err
		}
		return AIPYQ{Solutions: sols}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", w.Type)
	}
}

func isNull(data json.RawMessage) bool {
	return len(data) == 0 || string(data) == "null"
}

// ToWire converts a message to its persisted shape.
func ToWire(m Message) (Wire, error) {
	switch v := m.(type) {
	case UserText:
		return Wire{Role: RoleUser, Content: v.Content}, nil
	case AIText:
		return Wire{Role: RoleAI, Content: v.Content, Source: v.Source, Tag: v.Tag}, nil
	case SystemAsk:
		return Wire{Role: RoleSystemAsk, Content: v.Content, OriginalQuestion: v.OriginalQuestion}, nil
	case AIExam:
		return structured(wireTypeExam, v.Exam)
	case AIPYQ:
		return structured(wireTypePYQ, v.Solutions)
	case AITrend:
		return structured(wireTypeTrend, v.Trends)
	case Degraded:
		if json.Valid([]byte(v.Raw)) {
			var w Wire
			if err := json.Unmarshal([]byte(v.Raw), &w); err == nil {
				return w, nil
			}
		}
		return Wire{Role: RoleAI, Content: v.Reason}, nil
	default:
		return Wire{}, fmt.Errorf("unsupported message %T", m)
	}
}

func structured(typ string, data any) (Wire, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Wire{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Wire{Role: RoleAI, Type: typ, Data: raw}, nil
}

// Encode marshals a message to its persisted JSON form.
func Encode(m Message) (json.RawMessage, error) {
	w, err := ToWire(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// EncodeAll marshals a transcript in order.
func EncodeAll(msgs []Message) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(msgs))
	for i, m := range msgs {
		raw, err := Encode(m)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, raw)
	}
	return out, nil
}
