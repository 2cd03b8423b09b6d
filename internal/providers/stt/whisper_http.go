package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WhisperHTTP talks to a whisper-compatible transcription endpoint over
// HTTPS with a bearer credential. Transient failures (network, 5xx) are
// retried with exponential backoff inside the request timeout; 4xx responses
// are permanent.
type WhisperHTTP struct {
	url        string
	apiKey     string
	model      string
	hc         *http.Client
	maxRetries uint64
}

func NewWhisperHTTP(url, apiKey, model string, timeout time.Duration) (*WhisperHTTP, error) {
	if apiKey == "" {
		return nil, errors.New("stt: api key is required")
	}
	if url == "" {
		url = "https://api.openai.com/v1/audio/transcriptions"
	}
	if model == "" {
		model = "whisper-1"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WhisperHTTP{
		url:        url,
		apiKey:     apiKey,
		model:      model,
		hc:         &http.Client{Timeout: timeout},
		maxRetries: 2,
	}, nil
}

func (w *WhisperHTTP) Close() error { return nil }

type whisperResp struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (w *WhisperHTTP) Transcribe(ctx context.Context, clip Clip, language string) (string, float64, error) {
	if language == "" {
		language = "en-US"
	}

	var out whisperResp
	op := func() error {
		resp, err := w.post(ctx, clip, language)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			e := fmt.Errorf("stt backend http %d: %s", resp.StatusCode, string(b))
			if resp.StatusCode < 500 {
				return backoff.Permanent(e)
			}
			return e
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return backoff.Permanent(fmt.Errorf("stt backend response: %w", err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), w.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", 0, err
	}

	conf := 0.0
	if out.Confidence != nil && *out.Confidence >= 0 && *out.Confidence <= 1 {
		conf = *out.Confidence
	}
	return out.Text, conf, nil
}

func (w *WhisperHTTP) post(ctx context.Context, clip Clip, language string) (*http.Response, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", w.model); err != nil {
		return nil, err
	}
	if err := mw.WriteField("language", language); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", fileName(clip))
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(clip.Content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return w.hc.Do(req)
}

// fileName picks an upload name whose extension matches the clip so the
// backend's container sniffing is not misled.
func fileName(clip Clip) string {
	mime := strings.ToLower(strings.TrimSpace(clip.MimeType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "audio/webm", "video/webm":
		return "audio.webm"
	case "audio/ogg", "application/ogg", "audio/opus":
		return "audio.ogg"
	case "audio/mpeg", "audio/mp3":
		return "audio.mp3"
	case "audio/flac", "audio/x-flac":
		return "audio.flac"
	default:
		return "audio.wav"
	}
}
