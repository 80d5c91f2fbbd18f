// Package gesture turns tracked hands into classifier input and classifier
// output into text: feature extraction, stabilization, and the transcript.
package gesture

import (
	"math"

	"github.com/ayusman/signstream/internal/detector"
)

// Feature vector layout.
const (
	// MaxHands is the number of hands the classifier input has room for.
	MaxHands = 2
	// PointsPerHand is the landmark count per hand the classifier was trained on.
	PointsPerHand = detector.NumLandmarks
	// Coords is the number of values per point (x, y, z).
	Coords = 3
	// FeatureLen is the fixed classifier input width (2 x 21 x 3 = 126).
	FeatureLen = MaxHands * PointsPerHand * Coords
)

// FeatureVector is the fixed-width classifier input. Values are ordered
// hand-major, point-major, coordinate-minor: h0p0x, h0p0y, h0p0z, h0p1x, ...
type FeatureVector [FeatureLen]float64

// Flatten returns every coordinate of every hand in hand, point, axis order
// without padding or truncation.
func Flatten(hands []detector.HandLandmarks) []float64 {
	var n int
	for _, h := range hands {
		n += len(h.Points) * Coords
	}

	out := make([]float64, 0, n)
	for _, h := range hands {
		for _, p := range h.Points {
			out = append(out, p.X, p.Y, p.Z)
		}
	}
	return out
}

// Extract converts tracked hands into a FeatureVector. Missing values are
// zero and values beyond FeatureLen are dropped.
func Extract(hands []detector.HandLandmarks) FeatureVector {
	var fv FeatureVector
	i := 0
	for _, h := range hands {
		for _, p := range h.Points {
			for _, v := range [Coords]float64{p.X, p.Y, p.Z} {
				if i == FeatureLen {
					return fv
				}
				fv[i] = v
				i++
			}
		}
	}
	return fv
}

// FromSlice pads or truncates raw values to a FeatureVector.
func FromSlice(values []float64) FeatureVector {
	var fv FeatureVector
	copy(fv[:], values)
	return fv
}

// Slice returns the vector as a slice, e.g. for JSON encoding.
func (f FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureLen)
	copy(out, f[:])
	return out
}

// Distance returns the Euclidean distance between two vectors.
func Distance(a, b FeatureVector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
