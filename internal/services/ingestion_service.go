package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mbruun/roadlog/internal/extract"
	"github.com/mbruun/roadlog/internal/media"
	"github.com/mbruun/roadlog/internal/models"
	"github.com/mbruun/roadlog/internal/providers/stt"
	pgrepo "github.com/mbruun/roadlog/internal/repositories/postgres"
	"github.com/mbruun/roadlog/internal/storage"
	"github.com/mbruun/roadlog/internal/tempfile"
	"github.com/mbruun/roadlog/internal/utils"
)

// FlagTranscriptionUnavailable marks a record created without a transcript
// because the recognition backend failed. The failure reason is logged, not
// returned to the caller.
const FlagTranscriptionUnavailable = "transcription_unavailable"

type IngestInput struct {
	ProjectID    string
	CreatedBy    string
	Audio        []byte
	DeclaredMime string
	FileExt      string // original filename extension, including the dot
	Language     string
}

type IngestResult struct {
	Record     *models.FieldObservation
	Transcript string
	Confidence float64
	Flags      []string
}

type IngestionService interface {
	Ingest(ctx context.Context, in IngestInput) (*IngestResult, error)
}

type ingestionService struct {
	arena      *tempfile.Arena
	normalizer *media.Normalizer
	stt        stt.Provider
	store      storage.Store
	repo       pgrepo.ObservationRepository
	log        *logrus.Logger
}

func NewIngestionService(
	arena *tempfile.Arena,
	normalizer *media.Normalizer,
	provider stt.Provider,
	store storage.Store,
	repo pgrepo.ObservationRepository,
	log *logrus.Logger,
) IngestionService {
	if log == nil {
		log = logrus.New()
	}
	return &ingestionService{
		arena:      arena,
		normalizer: normalizer,
		stt:        provider,
		store:      store,
		repo:       repo,
		log:        log,
	}
}

// Ingest runs the pipeline strictly in sequence: stage the upload, normalize,
// transcribe, extract, relocate the audio, persist. Transcription failure
// degrades to default fields; only an unreadable upload or a storage failure
// aborts, and no record is ever persisted pointing at a temp path.
func (s *ingestionService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	const op = "IngestionService.Ingest"

	if in.ProjectID == "" || in.CreatedBy == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "project_id and created_by are required", nil)
	}
	if len(in.Audio) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio payload is empty", nil)
	}

	log := s.log.WithFields(logrus.Fields{
		"project_id": in.ProjectID,
		"created_by": in.CreatedBy,
		"audio_size": len(in.Audio),
	})

	var handles []*tempfile.Handle
	// Runs on every exit path; deletion itself is not cancellable.
	defer func() { s.arena.ReleaseAll(handles) }()

	ext := in.FileExt
	if ext == "" {
		ext = ".bin"
	}

	capture, err := s.arena.Acquire("capture" + ext)
	if err != nil {
		return nil, utils.E(utils.CodeUnreadableUpload, op, "could not stage the uploaded audio", err)
	}
	handles = append(handles, capture)

	if err := os.WriteFile(capture.Path(), in.Audio, 0o600); err != nil {
		return nil, utils.E(utils.CodeUnreadableUpload, op, "could not write the uploaded audio", err)
	}

	norm, err := s.normalizer.Normalize(ctx, capture.Path(), in.DeclaredMime)
	if err != nil {
		return nil, utils.E(utils.CodeUnreadableUpload, op, "could not read the uploaded audio", err)
	}

	audioBytes := in.Audio
	uploadMime := in.DeclaredMime
	uploadExt := ext
	if norm.Converted {
		handles = append(handles, s.arena.Adopt(norm.Path))
		audioBytes, err = os.ReadFile(norm.Path)
		if err != nil {
			return nil, utils.E(utils.CodeUnreadableUpload, op, "could not read the converted audio", err)
		}
		uploadMime = norm.MimeType
		uploadExt = ".wav"
	}

	clip := stt.Clip{
		Content:   audioBytes,
		MimeType:  uploadMime,
		Canonical: norm.Converted,
	}

	var flags []string
	text, conf, terr := s.stt.Transcribe(ctx, clip, in.Language)
	if err := ctx.Err(); err != nil {
		// The caller is gone; reporting this as a storage or transcription
		// problem would be misleading. Cleanup still runs via the deferred
		// release.
		return nil, utils.E(utils.CodeCanceled, op, "request cancelled before completion", err)
	}
	if terr != nil {
		// A timestamped record with defaults still beats losing the report;
		// a human can annotate it later.
		log.WithError(terr).Warn("transcription failed, completing degraded")
		flags = append(flags, FlagTranscriptionUnavailable)
		text, conf = "", 0
	}

	fields := extract.Extract(text)

	objectName := fmt.Sprintf("observations/%s/%s%s", in.ProjectID, uuid.NewString(), uploadExt)
	audioURL, err := s.store.Upload(ctx, objectName, uploadMime, bytes.NewReader(audioBytes))
	if err != nil {
		return nil, utils.E(utils.CodeStorageUnavailable, op, "could not relocate audio to permanent storage", err)
	}

	md, _ := json.Marshal(map[string]any{
		"converted": norm.Converted,
		"flags":     flags,
	})

	now := time.Now().UTC()
	rec := &models.FieldObservation{
		ID:                uuid.NewString(),
		ProjectID:         in.ProjectID,
		CreatedBy:         in.CreatedBy,
		Category:          fields.Category,
		Severity:          fields.Severity,
		Position:          fields.Position,
		Description:       fields.Description,
		RecommendedAction: fields.RecommendedAction,
		EstimatedCost:     fields.EstimatedCost,
		AudioURL:          audioURL,
		AudioObject:       objectName,
		Transcript:        text,
		Metadata:          md,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Insert(ctx, rec); err != nil {
		// The relocated blob becomes a tolerated orphan; the key is logged
		// so an operator can reap it.
		log.WithError(err).WithField("audio_object", objectName).Error("persist failed after audio relocation")
		return nil, utils.E(utils.CodeInternal, op, "failed to persist the observation", err)
	}

	log.WithFields(logrus.Fields{
		"observation_id": rec.ID,
		"category":       rec.Category,
		"severity":       rec.Severity,
		"converted":      norm.Converted,
		"confidence":     conf,
		"degraded":       len(flags) > 0,
	}).Info("observation ingested")

	return &IngestResult{Record: rec, Transcript: text, Confidence: conf, Flags: flags}, nil
}
