package gesture

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTrain_AveragesHands(t *testing.T) {
	samples := []json.RawMessage{
		json.RawMessage(`{"hands": [{"points": [{"x": 0.5, "y": 0.5, "z": 0}]}], "timestamp": 1000}`),
		json.RawMessage(`{"hands": [{"points": [{"x": 0.6, "y": 0.4, "z": 0}]}], "timestamp": 2000}`),
	}

	fv, err := Train(samples)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if !floatEqual(fv[0], 0.55) || !floatEqual(fv[1], 0.45) {
		t.Errorf("wrong average: got (%f, %f), expected (0.55, 0.45)", fv[0], fv[1])
	}
	if fv[3] != 0 {
		t.Errorf("expected zero padding, got %f", fv[3])
	}
}

func TestTrain_AveragesFeatures(t *testing.T) {
	samples := []json.RawMessage{
		json.RawMessage(`{"features": [0.1, 0.2, 0.3]}`),
		json.RawMessage(`{"features": [0.3, 0.4, 0.5]}`),
	}

	fv, err := Train(samples)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	want := []float64{0.2, 0.3, 0.4}
	for i, w := range want {
		if !floatEqual(fv[i], w) {
			t.Errorf("fv[%d] = %f, want %f", i, fv[i], w)
		}
	}
}

func TestTrain_Errors(t *testing.T) {
	t.Run("empty samples", func(t *testing.T) {
		_, err := Train([]json.RawMessage{})
		if !errors.Is(err, ErrNoSamples) {
			t.Errorf("expected ErrNoSamples, got %v", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Train([]json.RawMessage{json.RawMessage(`{invalid json}`)})
		if err == nil {
			t.Error("expected error for invalid JSON")
		}
	})

	t.Run("sample without data", func(t *testing.T) {
		_, err := Train([]json.RawMessage{json.RawMessage(`{"timestamp": 1}`)})
		if err == nil {
			t.Error("expected error for empty sample")
		}
	})
}
