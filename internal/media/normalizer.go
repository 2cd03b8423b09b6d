package media

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mbruun/roadlog/internal/logger"
)

// Normalized points at audio the transcription backend can consume. When the
// transcoder was unavailable or failed, Path is the original file and
// Converted is false; that is a degraded condition, not an error, because
// recognition backends tolerate a range of input formats.
type Normalized struct {
	Path      string
	Converted bool
	MimeType  string
}

// Normalizer shells out to ffmpeg to produce mono 16kHz 16-bit PCM WAV.
// The binary is probed once per process; a host without ffmpeg degrades to
// pass-through on every request without re-probing.
type Normalizer struct {
	bin     string
	timeout time.Duration
	log     *logrus.Entry

	probeOnce sync.Once
	available bool
}

const canonicalMime = "audio/wav"

func NewNormalizer(bin string, timeout time.Duration, log *logrus.Logger) *Normalizer {
	if bin == "" {
		bin = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logrus.New()
	}
	return &Normalizer{
		bin:     bin,
		timeout: timeout,
		log:     logger.WithComponent(log, "normalizer"),
	}
}

// Available reports whether the transcoder binary exists on this host.
func (n *Normalizer) Available() bool {
	n.probeOnce.Do(func() {
		_, err := exec.LookPath(n.bin)
		n.available = err == nil
		if err != nil {
			n.log.WithField("bin", n.bin).Warn("transcoder not found, audio will pass through unconverted")
		}
	})
	return n.available
}

func isCanonical(declaredMime, path string) bool {
	switch strings.ToLower(strings.TrimSpace(declaredMime)) {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return true
	}
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// Normalize converts the file at rawPath into canonical form at a path
// derived from the input. Only an unreadable input is an error; transcoder
// absence, non-zero exit, and timeout all fall back to the original file.
func (n *Normalizer) Normalize(ctx context.Context, rawPath, declaredMime string) (Normalized, error) {
	if _, err := os.Stat(rawPath); err != nil {
		return Normalized{}, err
	}

	passthrough := Normalized{Path: rawPath, Converted: false, MimeType: declaredMime}

	if isCanonical(declaredMime, rawPath) {
		return Normalized{Path: rawPath, Converted: false, MimeType: canonicalMime}, nil
	}
	if !n.Available() {
		return passthrough, nil
	}

	out := rawPath + ".norm.wav"

	cctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	// ffmpeg -y -i input -ac 1 -ar 16000 -acodec pcm_s16le -f wav output
	cmd := exec.CommandContext(cctx, n.bin,
		"-y", "-i", rawPath,
		"-ac", "1", "-ar", "16000",
		"-acodec", "pcm_s16le",
		"-f", "wav",
		out,
	)
	if err := cmd.Run(); err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"declared_mime": declaredMime,
			"timeout":       n.timeout.String(),
		}).Warn("audio conversion failed, passing original through")
		_ = os.Remove(out) // drop any partial output
		return passthrough, nil
	}

	return Normalized{Path: out, Converted: true, MimeType: canonicalMime}, nil
}
