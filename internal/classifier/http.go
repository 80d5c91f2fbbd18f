package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/signstream/internal/gesture"
)

// DefaultTimeout bounds a single model service call.
const DefaultTimeout = 5 * time.Second

const (
	predictPath = "/api/isl-model/predict"
	loadPath    = "/api/isl-model/load"
)

// HTTPClient calls the ISL model service over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		h.client = c
	}
}

// WithTimeout sets the per-call timeout. Values <= 0 are ignored.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHTTPClient creates a client for the service at baseURL
// (e.g. "http://localhost:8000").
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service address.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

type predictRequest struct {
	Landmarks []float64 `json:"landmarks"`
	Action    string    `json:"action"`
}

type predictResponse struct {
	Success    bool `json:"success"`
	Prediction *struct {
		Label          string             `json:"label"`
		Confidence     float64            `json:"confidence"`
		AllPredictions map[string]float64 `json:"all_predictions"`
	} `json:"prediction"`
	Error string `json:"error"`
}

// Classify submits fv to the model service. Transport errors, timeouts,
// non-2xx statuses, success=false answers and malformed bodies all produce
// a failed Result; the caller sees UNKNOWN with zero confidence.
func (c *HTTPClient) Classify(ctx context.Context, fv gesture.FeatureVector) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out predictResponse
	req := predictRequest{Landmarks: fv.Slice(), Action: "predict"}
	if err := c.post(ctx, predictPath, req, &out); err != nil {
		return Fail(err)
	}

	if !out.Success {
		return Fail(fmt.Errorf("%w: %s", ErrRemote, out.Error))
	}
	if out.Prediction == nil {
		return Fail(fmt.Errorf("%w: response has no prediction", ErrRemote))
	}

	conf := out.Prediction.Confidence
	if math.IsNaN(conf) || conf < 0 || conf > 1 {
		return Fail(fmt.Errorf("%w: confidence %v out of range", ErrRemote, conf))
	}

	label := out.Prediction.Label
	if label == "" {
		label = gesture.LabelUnknown
	}

	return Ok(gesture.Prediction{
		Label:        label,
		Confidence:   conf,
		Distribution: out.Prediction.AllPredictions,
	})
}

// ModelInfo describes the model loaded by the service.
type ModelInfo struct {
	Classes     []string `json:"classes"`
	InputShape  []int    `json:"input_shape"`
	OutputShape []int    `json:"output_shape"`
}

type loadRequest struct {
	Action string `json:"action"`
}

type loadResponse struct {
	Success     bool     `json:"success"`
	Classes     []string `json:"classes"`
	InputShape  []*int   `json:"input_shape"`
	OutputShape []*int   `json:"output_shape"`
	Error       string   `json:"error"`
}

// Load asks the service to load the model and its label encoder and
// returns what it loaded. Unknown shape dimensions are reported as -1.
func (c *HTTPClient) Load(ctx context.Context) (ModelInfo, error) {
	var info ModelInfo

	ctx, cancel := context.WithTimeout(ctx, 6*c.timeout)
	defer cancel()

	var model loadResponse
	if err := c.post(ctx, loadPath, loadRequest{Action: "load_model"}, &model); err != nil {
		return info, fmt.Errorf("load model: %w", err)
	}
	if !model.Success {
		return info, fmt.Errorf("load model: %w: %s", ErrRemote, model.Error)
	}

	var encoder loadResponse
	if err := c.post(ctx, loadPath, loadRequest{Action: "load_encoder"}, &encoder); err != nil {
		return info, fmt.Errorf("load encoder: %w", err)
	}
	if !encoder.Success {
		return info, fmt.Errorf("load encoder: %w: %s", ErrRemote, encoder.Error)
	}

	info.Classes = encoder.Classes
	info.InputShape = shape(model.InputShape)
	info.OutputShape = shape(model.OutputShape)
	return info, nil
}

func shape(dims []*int) []int {
	out := make([]int, len(dims))
	for i, d := range dims {
		if d == nil {
			out[i] = -1
			continue
		}
		out[i] = *d
	}
	return out
}

// post sends body as JSON and decodes a 2xx JSON answer into out.
func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(snippet, &body) == nil && body.Error != "" {
			return fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, body.Error)
		}
		return fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
