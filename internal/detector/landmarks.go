// Package detector provides hand tracking interfaces and landmark types for sign recognition.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a tracked point in normalized image coordinates
// (x and y in 0.0-1.0, z relative to the wrist depth).
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one tracked hand. MediaPipe reports NumLandmarks points,
// but other trackers may report fewer or more; consumers must not assume a
// fixed count.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness,omitempty"` // "Left" or "Right"
	Score      float64   `json:"score,omitempty"`
}

// NewHand returns a hand with NumLandmarks zeroed points.
func NewHand(handedness string, score float64) HandLandmarks {
	return HandLandmarks{
		Points:     make([]Point3D, NumLandmarks),
		Handedness: handedness,
		Score:      score,
	}
}

// Mirrored returns a copy of the hand with x coordinates flipped (x -> 1-x).
func (h HandLandmarks) Mirrored() HandLandmarks {
	out := HandLandmarks{
		Points:     make([]Point3D, len(h.Points)),
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i, p := range h.Points {
		out.Points[i] = Point3D{X: 1 - p.X, Y: p.Y, Z: p.Z}
	}
	return out
}
