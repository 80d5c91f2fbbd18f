package gesture

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/signstream/internal/detector"
)

// ErrNoSamples is returned when training is attempted without samples.
var ErrNoSamples = errors.New("no samples provided")

// Sample is one recorded training pose. Either Hands or Features is set;
// Features wins when both are present.
type Sample struct {
	Hands     []detector.HandLandmarks `json:"hands,omitempty"`
	Features  []float64                `json:"features,omitempty"`
	Timestamp int64                    `json:"timestamp,omitempty"`
}

// Vector returns the sample's classifier input.
func (s Sample) Vector() (FeatureVector, error) {
	if len(s.Features) > 0 {
		return FromSlice(s.Features), nil
	}
	if len(s.Hands) == 0 {
		return FeatureVector{}, errors.New("sample has neither hands nor features")
	}
	return Extract(s.Hands), nil
}

// Train averages recorded samples into a single template vector.
func Train(samples []json.RawMessage) (FeatureVector, error) {
	var avg FeatureVector
	if len(samples) == 0 {
		return avg, ErrNoSamples
	}

	for i, raw := range samples {
		var sample Sample
		if err := json.Unmarshal(raw, &sample); err != nil {
			return avg, fmt.Errorf("failed to parse sample %d: %w", i, err)
		}

		fv, err := sample.Vector()
		if err != nil {
			return avg, fmt.Errorf("sample %d: %w", i, err)
		}

		for j := range avg {
			avg[j] += fv[j]
		}
	}

	n := float64(len(samples))
	for j := range avg {
		avg[j] /= n
	}

	return avg, nil
}
