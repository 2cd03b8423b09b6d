package services

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mbruun/roadlog/internal/models"
	"github.com/mbruun/roadlog/internal/providers/stt"
	"github.com/mbruun/roadlog/internal/utils"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeRepo struct {
	mu        sync.Mutex
	rows      map[string]*models.FieldObservation
	insertErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[string]*models.FieldObservation{}}
}

func (r *fakeRepo) Insert(_ context.Context, o *models.FieldObservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	cp := *o
	r.rows[o.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, projectID, id string) (*models.FieldObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.ProjectID != projectID {
		return nil, utils.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *fakeRepo) ListByProject(_ context.Context, projectID string, _ int) ([]models.FieldObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.FieldObservation
	for _, row := range r.rows {
		if row.ProjectID == projectID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeRepo) Delete(_ context.Context, projectID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.ProjectID != projectID {
		return utils.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	removed   []string
	uploadErr error
	removeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.objects[objectName] = data
	return "https://blobs.example.com/" + objectName, nil
}

func (s *fakeStore) Remove(_ context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, objectName)
	delete(s.objects, objectName)
	return nil
}

type fakeSTT struct {
	text    string
	conf    float64
	err     error
	gotClip stt.Clip

	// onTranscribe, when set, runs before the result is returned; used to
	// simulate a client disconnect mid-stage.
	onTranscribe func()
}

func (f *fakeSTT) Transcribe(ctx context.Context, clip stt.Clip, _ string) (string, float64, error) {
	f.gotClip = clip
	if f.onTranscribe != nil {
		f.onTranscribe()
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	return f.text, f.conf, f.err
}

func (f *fakeSTT) Close() error { return nil }

var errBackendDown = errors.New("backend down")
