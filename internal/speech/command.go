package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"time"
)

// Request is the JSON document a speech plugin reads from stdin.
type Request struct {
	Action string `json:"action"`
	Text   string `json:"text"`
	Voice  Voice  `json:"voice"`
}

// Response is the JSON document a speech plugin writes to stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CommandSpeaker speaks through a local plugin executable. The plugin gets
// a Request on stdin and must answer with a Response on stdout.
type CommandSpeaker struct {
	executable string
	timeout    time.Duration
}

// NewCommandSpeaker creates a speaker running executable with the given
// per-utterance timeout.
func NewCommandSpeaker(executable string, timeout time.Duration) *CommandSpeaker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CommandSpeaker{executable: executable, timeout: timeout}
}

// Speak implements Speaker.
func (s *CommandSpeaker) Speak(ctx context.Context, text string, voice Voice) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reqJSON, err := json.Marshal(Request{Action: "speak", Text: text, Voice: voice.Clamp()})
	if err != nil {
		return fmt.Errorf("marshal speech request: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.executable)
	cmd.Dir = filepath.Dir(s.executable)
	cmd.Stdin = bytes.NewReader(reqJSON)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("speech plugin timeout after %v", s.timeout)
	}
	if ctx.Err() == context.Canceled {
		return ctx.Err()
	}
	if err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("speech plugin failed: %w, stderr: %s", err, stderr.String())
		}
		return fmt.Errorf("speech plugin failed: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return fmt.Errorf("parse speech plugin response: %w, stdout: %s", err, stdout.String())
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrSpeech, resp.Error)
	}
	return nil
}

// CommandPlayer plays audio by piping it into an external player such as
// "ffplay -nodisp -autoexit -" or "mpv -".
type CommandPlayer struct {
	Path string
	Args []string
}

// Play implements Player.
func (p CommandPlayer) Play(ctx context.Context, audio io.Reader, contentType string) error {
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Stdin = audio
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("player %s (%s): %w: %s", p.Path, contentType, err, stderr.String())
	}
	return nil
}
