// Package main is an alert hook that shows a desktop notification when a
// known person is recognized. It uses osascript on macOS and notify-send
// elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request is the alert read from stdin.
type Request struct {
	Event     string `json:"event"`
	AlertID   string `json:"alert_id"`
	Identity  string `json:"identity"`
	Caption   string `json:"caption"`
	Timestamp string `json:"timestamp"`
	Image     string `json:"image"`
}

// Response is written to stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	if req.Event != "alert" {
		writeResponse(Response{Success: true, Message: "ignored event " + req.Event})
		return
	}

	title := "Recognized: " + req.Identity
	body := req.Caption
	if body == "" {
		body = req.Timestamp
	}

	if err := notify(title, body); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("notify failed: %v", err)})
		return
	}
	writeResponse(Response{Success: true, Message: "notified " + req.Identity})
}

// notify shows a desktop notification with the platform's tool.
func notify(title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", quote(body), quote(title))
		cmd = exec.Command("osascript", "-e", script)
	default:
		cmd = exec.Command("notify-send", "--app-name=facewatch", title, body)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// quote renders s as an AppleScript string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
