package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/ayusman/signstream/internal/app"
	"github.com/ayusman/signstream/internal/classifier"
	"github.com/ayusman/signstream/internal/gesture"
	"github.com/ayusman/signstream/internal/pipeline"
	"github.com/ayusman/signstream/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// do sends a request through r and returns the recorder.
func do(r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type fakeTrainer struct {
	mu        sync.Mutex
	store     *store.Store
	refreshed []string
	forgotten []string
}

func (f *fakeTrainer) TrainSign(id string) (*store.Sign, error) {
	samples, err := f.store.Samples().GetBySignID(id)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		if _, err := f.store.Signs().GetByID(id); err != nil {
			return nil, err
		}
		return nil, gesture.ErrNoSamples
	}
	if err := f.store.Signs().SetTemplate(id, []float64{1, 2, 3}); err != nil {
		return nil, err
	}
	return f.store.Signs().GetByID(id)
}

func (f *fakeTrainer) RefreshSign(sg *store.Sign) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, sg.Name)
}

func (f *fakeTrainer) ForgetSign(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgotten = append(f.forgotten, id)
}

type fakeRecognizer struct {
	mu      sync.Mutex
	session *pipeline.Session
	frames  []pipeline.Frame
	paused  bool
	saveErr error
}

func newFakeRecognizer(id string) *fakeRecognizer {
	c := classifier.Func(func(ctx context.Context, fv gesture.FeatureVector) classifier.Result {
		return classifier.Fail(errors.New("unused"))
	})
	cfg := pipeline.DefaultConfig()
	cfg.SessionID = id
	return &fakeRecognizer{session: pipeline.NewSession(cfg, c)}
}

func (f *fakeRecognizer) Status() app.Status {
	return app.Status{Status: f.session.Status(), Enabled: !f.paused}
}

func (f *fakeRecognizer) PushFrame(fr pipeline.Frame) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paused {
		return false
	}
	f.frames = append(f.frames, fr)
	return true
}

func (f *fakeRecognizer) Session() *pipeline.Session {
	return f.session
}

func (f *fakeRecognizer) Preferences() pipeline.Preferences {
	return f.session.Preferences()
}

func (f *fakeRecognizer) SetPreferences(p pipeline.Preferences) (pipeline.Preferences, error) {
	if f.saveErr != nil {
		return p, f.saveErr
	}
	f.session.SetPreferences(p)
	return f.session.Preferences(), nil
}

func newRouter(register ...func(*mux.Router)) *mux.Router {
	r := mux.NewRouter()
	for _, reg := range register {
		reg(r)
	}
	return r
}
