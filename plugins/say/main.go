// Package main provides a speech plugin that speaks text with the local
// text-to-speech engine: say on macOS, espeak elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// baseWordsPerMinute is the speaking rate used for rate 1.0.
const baseWordsPerMinute = 175

// Voice mirrors the voice settings sent by signstream.
type Voice struct {
	Volume  int     `json:"volume"`
	Rate    float64 `json:"rate"`
	VoiceID string  `json:"voice_id"`
}

// Request represents the input from signstream.
type Request struct {
	Action string `json:"action"`
	Text   string `json:"text"`
	Voice  Voice  `json:"voice"`
}

// Response represents the output to signstream.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	switch req.Action {
	case "speak":
		if err := speak(runtime.GOOS, req.Text, req.Voice); err != nil {
			writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
			return
		}
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	writeSuccessResponse()
}

// speak runs the engine. Voice names are engine specific, so a failure
// with a voice is retried with the engine's default voice.
func speak(goos, text string, v Voice) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required")
	}

	name, args := buildCommand(goos, text, v)
	err := run(name, args)
	if err != nil && v.VoiceID != "" {
		v.VoiceID = ""
		name, args = buildCommand(goos, text, v)
		err = run(name, args)
	}
	return err
}

// buildCommand returns the engine and arguments for text.
func buildCommand(goos, text string, v Voice) (string, []string) {
	rate := v.Rate
	if rate <= 0 {
		rate = 1
	}
	wpm := strconv.Itoa(int(math.Round(baseWordsPerMinute * rate)))

	volume := min(max(v.Volume, 0), 100)

	if goos == "darwin" {
		args := []string{"-r", wpm}
		if v.VoiceID != "" {
			args = append(args, "-v", v.VoiceID)
		}
		// say has no volume flag; the volm embedded command takes 0.0-1.0.
		args = append(args, fmt.Sprintf("[[volm %.2f]] %s", float64(volume)/100, text))
		return "say", args
	}

	// espeak amplitude runs 0-200 with 100 as normal.
	args := []string{"-s", wpm, "-a", strconv.Itoa(volume * 2)}
	if v.VoiceID != "" {
		args = append(args, "-v", strings.ToLower(v.VoiceID))
	}
	args = append(args, "--", text)
	return "espeak", args
}

func run(name string, args []string) error {
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
