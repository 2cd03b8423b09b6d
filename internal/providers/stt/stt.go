package stt

import "context"

// Clip is the audio handed to a recognition backend. Canonical marks
// normalizer output (mono 16kHz 16-bit PCM WAV); pass-through audio keeps
// its declared MIME type so backends can describe it honestly instead of
// assuming the canonical format.
type Clip struct {
	Content   []byte
	MimeType  string
	Canonical bool
}

// Provider is the speech recognition backend. An empty text with a nil error
// is a soft success (valid but uninformative recognition); a non-nil error is
// a hard stage failure and the caller decides how to degrade. Confidence is
// 0..1, or 0 when the backend reports none.
type Provider interface {
	Transcribe(ctx context.Context, clip Clip, language string) (text string, confidence float64, err error)
	Close() error
}
