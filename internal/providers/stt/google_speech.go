package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

type GoogleSpeech struct {
	c *speech.Client
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{c: c}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// recognitionConfig describes the clip to the API. Only normalizer output is
// declared LINEAR16@16kHz; pass-through audio keeps whatever container its
// MIME type names, and anything unrecognized (including non-canonical WAV,
// whose header carries the real rate) is left for the backend to sniff.
// Declaring LINEAR16 for an Opus container gets the request rejected, which
// would turn every ffmpeg-less host permanently degraded.
func recognitionConfig(clip Clip, language string) *speechpb.RecognitionConfig {
	cfg := &speechpb.RecognitionConfig{
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}
	if clip.Canonical {
		cfg.Encoding = speechpb.RecognitionConfig_LINEAR16
		cfg.SampleRateHertz = 16000
		return cfg
	}

	mime := strings.ToLower(strings.TrimSpace(clip.MimeType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "audio/webm", "video/webm":
		cfg.Encoding = speechpb.RecognitionConfig_WEBM_OPUS
	case "audio/ogg", "application/ogg", "audio/opus":
		cfg.Encoding = speechpb.RecognitionConfig_OGG_OPUS
		cfg.SampleRateHertz = 48000
	case "audio/mpeg", "audio/mp3":
		cfg.Encoding = speechpb.RecognitionConfig_MP3
		cfg.SampleRateHertz = 16000
	case "audio/flac", "audio/x-flac":
		cfg.Encoding = speechpb.RecognitionConfig_FLAC
	default:
		cfg.Encoding = speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
	return cfg
}

// language example: "en-US", "da-DK"
func (g *GoogleSpeech) Transcribe(ctx context.Context, clip Clip, language string) (string, float64, error) {
	if language == "" {
		language = "en-US"
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig(clip, language),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: clip.Content},
		},
	})
	if err != nil {
		return "", 0, err
	}

	var bestText string
	var bestConf float64
	for _, r := range resp.Results {
		for _, alt := range r.Alternatives {
			if alt.Transcript != "" && float64(alt.Confidence) >= bestConf {
				bestText = alt.Transcript
				bestConf = float64(alt.Confidence)
			}
		}
	}

	return bestText, bestConf, nil
}
