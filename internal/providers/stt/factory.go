package stt

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CreateProvider builds the configured recognition backend. A missing
// credential is a startup error, never a per-request one.
func CreateProvider(ctx context.Context) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(os.Getenv("STT_PROVIDER")))
	if name == "" {
		name = "whisper"
	}

	switch name {
	case "whisper":
		timeout := 30 * time.Second
		if v := os.Getenv("STT_TIMEOUT_SECONDS"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				timeout = time.Duration(secs) * time.Second
			}
		}
		p, err := NewWhisperHTTP(os.Getenv("STT_URL"), os.Getenv("STT_API_KEY"), os.Getenv("STT_MODEL"), timeout)
		if err != nil {
			return nil, fmt.Errorf("stt: STT_API_KEY is not set: %w", err)
		}
		return p, nil
	case "google":
		return NewGoogleSpeech(ctx)
	default:
		return nil, fmt.Errorf("stt: unsupported provider %q (supported: whisper, google)", name)
	}
}
