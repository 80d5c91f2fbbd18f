package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Player plays synthesized audio.
type Player interface {
	Play(ctx context.Context, audio io.Reader, contentType string) error
}

// HTTPSpeaker synthesizes speech with a remote TTS service and hands the
// audio to a Player.
type HTTPSpeaker struct {
	url    string
	apiKey string
	client *http.Client
	player Player
}

// NewHTTPSpeaker creates a speaker posting to url. A nil player discards
// the audio; apiKey, when set, is sent in the api-key header.
func NewHTTPSpeaker(url, apiKey string, player Player) *HTTPSpeaker {
	return &HTTPSpeaker{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
		player: player,
	}
}

type ttsRequest struct {
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id,omitempty"`
	Volume  int     `json:"volume"`
	Rate    float64 `json:"rate"`
}

// Speak implements Speaker.
func (s *HTTPSpeaker) Speak(ctx context.Context, text string, voice Voice) error {
	voice = voice.Clamp()
	payload, err := json.Marshal(ttsRequest{
		Text:    text,
		VoiceID: voice.VoiceID,
		Volume:  voice.Volume,
		Rate:    voice.Rate,
	})
	if err != nil {
		return fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: tts status %d: %s", ErrSpeech, resp.StatusCode, bytes.TrimSpace(body))
	}

	if s.player == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	return s.player.Play(ctx, resp.Body, resp.Header.Get("Content-Type"))
}
