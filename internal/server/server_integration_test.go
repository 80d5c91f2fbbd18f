package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/signstream/internal/detector"
	"github.com/ayusman/signstream/internal/gesture"
	"github.com/ayusman/signstream/internal/pipeline"
)

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return resp
}

func handFrame(hand detector.HandLandmarks) pipeline.Frame {
	return pipeline.Frame{Hands: []detector.HandLandmarks{hand}}
}

// trainSign creates a sign over HTTP, records two samples of hand and trains it.
func trainSign(t *testing.T, ts *httptest.Server, name string, hand detector.HandLandmarks) string {
	t.Helper()
	client := ts.Client()

	resp := postJSON(t, client, ts.URL+"/api/signs", map[string]any{"name": name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/signs status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	sample := gesture.Sample{Hands: []detector.HandLandmarks{hand}}
	resp = postJSON(t, client, ts.URL+"/api/signs/"+created.ID+"/samples", map[string]any{
		"samples": []gesture.Sample{sample, sample},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST samples status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	resp = postJSON(t, client, ts.URL+"/api/signs/"+created.ID+"/train", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST train status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var trained struct {
		Trained bool `json:"trained"`
		Samples int  `json:"samples"`
	}
	json.NewDecoder(resp.Body).Decode(&trained)
	resp.Body.Close()
	if !trained.Trained || trained.Samples != 2 {
		t.Fatalf("trained sign = %+v", trained)
	}
	return created.ID
}

func TestAPI_SignWorkflow(t *testing.T) {
	a := newTestApp(t)
	ts := httptest.NewServer(New(Config{App: a}))
	defer ts.Close()
	client := ts.Client()

	trainSign(t, ts, "H", detector.OpenPalmLandmarks())
	trainSign(t, ts, "I", detector.FistLandmarks())

	// Three identical frames fill the window and emit H.
	for i := 0; i < 3; i++ {
		before := a.Status().Frames
		resp := postJSON(t, client, ts.URL+"/api/session/frames", handFrame(detector.OpenPalmLandmarks()))
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("POST frames status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}
		resp.Body.Close()
		waitFor(t, "frame processing", func() bool {
			st := a.Status()
			return st.Frames > before && !st.Busy
		})
	}

	resp, err := client.Get(ts.URL + "/api/session")
	if err != nil {
		t.Fatalf("GET /api/session error = %v", err)
	}
	var status struct {
		Sentence  string `json:"sentence"`
		Templates int    `json:"templates"`
		History   []struct {
			Label string `json:"label"`
		} `json:"history"`
	}
	json.NewDecoder(resp.Body).Decode(&status)
	resp.Body.Close()

	if status.Sentence != "H" {
		t.Errorf("sentence = %q, want H", status.Sentence)
	}
	if status.Templates != 2 {
		t.Errorf("templates = %d, want 2", status.Templates)
	}
	if len(status.History) != 1 || status.History[0].Label != "H" {
		t.Errorf("history = %+v", status.History)
	}

	resp, _ = client.Get(ts.URL + "/api/session/emissions")
	var listed struct {
		Emissions []struct {
			Label    string `json:"label"`
			Sentence string `json:"sentence"`
		} `json:"emissions"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	if len(listed.Emissions) != 1 || listed.Emissions[0].Label != "H" {
		t.Errorf("emissions = %+v", listed.Emissions)
	}

	resp = postJSON(t, client, ts.URL+"/api/session/clear-sentence", nil)
	resp.Body.Close()
	if a.Session().Sentence() != "" {
		t.Errorf("sentence after clear = %q", a.Session().Sentence())
	}
	if len(a.Session().History()) != 1 {
		t.Error("clearing the sentence must keep the history")
	}
}

func TestAPI_PausedRejectsFrames(t *testing.T) {
	a := newTestApp(t)
	ts := httptest.NewServer(New(Config{App: a}))
	defer ts.Close()

	a.SetEnabled(false)
	resp := postJSON(t, ts.Client(), ts.URL+"/api/session/frames", handFrame(detector.FistLandmarks()))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestSessionSocket(t *testing.T) {
	a := newTestApp(t)
	ts := httptest.NewServer(New(Config{App: a}))
	defer ts.Close()

	trainSign(t, ts, "W", detector.ThumbsUpLandmarks())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	var errMsg struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}
	if err := ws.ReadJSON(&errMsg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if errMsg.Type != "error" {
		t.Errorf("got %+v, want an error message", errMsg)
	}

	var events []pipeline.Event
	for i := 0; i < 3; i++ {
		if err := ws.WriteJSON(handFrame(detector.ThumbsUpLandmarks())); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
		// Each frame yields a prediction event; the third also an emission.
		var ev pipeline.Event
		if err := ws.ReadJSON(&ev); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		events = append(events, ev)
	}

	var emitted pipeline.Event
	if err := ws.ReadJSON(&emitted); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if emitted.Type != pipeline.EventEmission || emitted.Label != "W" || emitted.Sentence != "W" {
		t.Errorf("emission event = %+v", emitted)
	}
	for i, ev := range events {
		if ev.Type != pipeline.EventPrediction || ev.Label != "W" {
			t.Errorf("event %d = %+v, want prediction of W", i, ev)
		}
	}
}

func TestStreamHandler(t *testing.T) {
	a := newTestApp(t)
	a.Preview().PublishJPEG([]byte("jpeg-bytes"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	New(Config{App: a}).ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q", ct)
	}
	want := fmt.Sprintf("Content-Length: %d\r\n\r\njpeg-bytes", len("jpeg-bytes"))
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("body = %q, want a part containing the frame", rec.Body.String())
	}
}
