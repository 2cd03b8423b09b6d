package tempfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Arena hands out uniquely named scratch files under one root directory and
// guarantees they can be released on every exit path of a request. Handles
// are never shared across requests; uniqueness comes from a nanosecond
// timestamp plus a random token, so no locking is needed around the files
// themselves.
type Arena struct {
	root string
	log  *logrus.Logger
}

// Handle is one scratch file owned by the request that acquired it.
type Handle struct {
	path string
}

func (h *Handle) Path() string { return h.path }

func New(root string, log *logrus.Logger) (*Arena, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "roadlog")
	}
	if log == nil {
		log = logrus.New()
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("tempfile: create root %q: %w", root, err)
	}
	return &Arena{root: root, log: log}, nil
}

func (a *Arena) Root() string { return a.root }

// Acquire creates an empty file under the arena root and returns its handle.
// prefix may carry an extension suffix (ex: "capture.webm") which is kept at
// the end of the generated name so tools that sniff extensions still work.
func (a *Arena) Acquire(prefix string) (*Handle, error) {
	base := prefix
	ext := filepath.Ext(prefix)
	if ext != "" {
		base = strings.TrimSuffix(prefix, ext)
	}
	name := fmt.Sprintf("%s-%d-%s%s", base, time.Now().UnixNano(), uuid.NewString()[:8], ext)
	path := filepath.Join(a.root, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("tempfile: acquire %q: %w", prefix, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("tempfile: acquire %q: %w", prefix, err)
	}
	return &Handle{path: path}, nil
}

// Adopt registers a file created outside Acquire (ex: a transcoder output)
// so it participates in the same release discipline.
func (a *Arena) Adopt(path string) *Handle {
	return &Handle{path: path}
}

// Release deletes the underlying file. Idempotent: a file that is already
// gone is not an error.
func (a *Arena) Release(h *Handle) error {
	if h == nil || h.path == "" {
		return nil
	}
	if err := os.Remove(h.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tempfile: release: %w", err)
	}
	return nil
}

// ReleaseAll releases every handle in the set regardless of individual
// failures. Failed deletes are logged, never raised; callers defer this so
// cleanup runs on normal completion, errors, and early returns alike.
func (a *Arena) ReleaseAll(handles []*Handle) {
	for _, h := range handles {
		if err := a.Release(h); err != nil {
			a.log.WithError(err).WithField("path", filepath.Base(h.path)).
				Warn("temp file release failed")
		}
	}
}
