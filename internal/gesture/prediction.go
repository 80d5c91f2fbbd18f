package gesture

import "strings"

// Labels with special meaning to the transcript. The sign model emits them
// in upper case; matching is case-insensitive.
const (
	LabelUnknown = "UNKNOWN"
	LabelSpace   = "SPACE"
	LabelDelete  = "DELETE"
	LabelNothing = "NOTHING"
)

// Prediction is one classifier answer.
type Prediction struct {
	Label        string             `json:"label"`
	Confidence   float64            `json:"confidence"`
	Distribution map[string]float64 `json:"distribution,omitempty"`
}

// Unknown is the prediction substituted for a failed classification.
func Unknown() Prediction {
	return Prediction{Label: LabelUnknown, Confidence: 0}
}

// IsUnknown reports whether the prediction carries no usable label.
func (p Prediction) IsUnknown() bool {
	return p.Label == "" || strings.EqualFold(p.Label, LabelUnknown)
}

// LabelKind classifies a label by its effect on the transcript.
type LabelKind int

const (
	// KindContent labels are appended to the sentence verbatim.
	KindContent LabelKind = iota
	// KindSpace appends a single space.
	KindSpace
	// KindDelete removes the last character.
	KindDelete
	// KindNothing leaves the transcript unchanged.
	KindNothing
)

// String returns the kind name used in logs and persisted emissions.
func (k LabelKind) String() string {
	switch k {
	case KindSpace:
		return "space"
	case KindDelete:
		return "delete"
	case KindNothing:
		return "nothing"
	default:
		return "sign"
	}
}

// KindOf returns the transcript effect of a label.
func KindOf(label string) LabelKind {
	switch {
	case strings.EqualFold(label, LabelSpace):
		return KindSpace
	case strings.EqualFold(label, LabelDelete):
		return KindDelete
	case strings.EqualFold(label, LabelNothing):
		return KindNothing
	default:
		return KindContent
	}
}
