package gesture

// Stabilizer defaults, tuned against the ISL model.
const (
	DefaultWindowSize    = 3
	DefaultMinConfidence = 0.75
)

// Stabilizer debounces per-frame predictions: a label is emitted only after
// it fills the whole window, every entry above the confidence floor.
//
// Invariant: len(window) <= size. The window is cleared on a rejected
// prediction and after every emission. A Stabilizer is not safe for
// concurrent use.
type Stabilizer struct {
	size          int
	minConfidence float64
	window        []string
}

// NewStabilizer creates a Stabilizer. A size below 1 uses DefaultWindowSize.
func NewStabilizer(size int, minConfidence float64) *Stabilizer {
	if size < 1 {
		size = DefaultWindowSize
	}
	return &Stabilizer{
		size:          size,
		minConfidence: minConfidence,
		window:        make([]string, 0, size),
	}
}

// Observe feeds one prediction. It returns the prediction and true when the
// window has just become full and uniform.
func (s *Stabilizer) Observe(p Prediction) (Prediction, bool) {
	// Written as !(>) so NaN confidences are rejected too.
	if p.IsUnknown() || !(p.Confidence > s.minConfidence) {
		s.Reset()
		return Prediction{}, false
	}

	if len(s.window) == s.size {
		copy(s.window, s.window[1:])
		s.window = s.window[:s.size-1]
	}
	s.window = append(s.window, p.Label)

	if len(s.window) < s.size {
		return Prediction{}, false
	}
	for _, label := range s.window[1:] {
		if label != s.window[0] {
			return Prediction{}, false
		}
	}

	s.Reset()
	return p, true
}

// Reset clears debounce progress.
func (s *Stabilizer) Reset() {
	s.window = s.window[:0]
}

// Len returns the number of labels currently in the window.
func (s *Stabilizer) Len() int {
	return len(s.window)
}

// Size returns the window capacity.
func (s *Stabilizer) Size() int {
	return s.size
}

// Window returns a copy of the labels in the window, oldest first.
func (s *Stabilizer) Window() []string {
	out := make([]string, len(s.window))
	copy(out, s.window)
	return out
}
