package services

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mbruun/roadlog/internal/media"
	"github.com/mbruun/roadlog/internal/models"
	"github.com/mbruun/roadlog/internal/tempfile"
	"github.com/mbruun/roadlog/internal/utils"
)

type ingestEnv struct {
	svc   IngestionService
	arena *tempfile.Arena
	repo  *fakeRepo
	store *fakeStore
}

// newIngestEnv wires the pipeline with a real arena and normalizer (pointed
// at a binary that does not exist, so every input passes through) plus fakes
// for the external collaborators.
func newIngestEnv(t *testing.T, provider *fakeSTT) *ingestEnv {
	t.Helper()
	log := quietLogger()
	arena, err := tempfile.New(t.TempDir(), log)
	if err != nil {
		t.Fatalf("tempfile.New: %v", err)
	}
	repo := newFakeRepo()
	store := newFakeStore()
	norm := media.NewNormalizer("no-such-transcoder", time.Second, log)
	return &ingestEnv{
		svc:   NewIngestionService(arena, norm, provider, store, repo, log),
		arena: arena,
		repo:  repo,
		store: store,
	}
}

func (e *ingestEnv) tempFileCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.arena.Root())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	return len(entries)
}

func validInput() IngestInput {
	return IngestInput{
		ProjectID:    "proj-1",
		CreatedBy:    "user-7",
		Audio:        []byte("fake webm bytes"),
		DeclaredMime: "audio/webm",
		FileExt:      ".webm",
		Language:     "en-US",
	}
}

func TestIngestHappyPath(t *testing.T) {
	transcript := "There is a large pothole near the Main Street intersection, about 30 cm wide, this should be repaired soon"
	env := newIngestEnv(t, &fakeSTT{text: transcript, conf: 0.91})

	res, err := env.svc.Ingest(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	rec := res.Record
	if rec.Category != models.CategoryPothole {
		t.Errorf("expected category pothole, got %s", rec.Category)
	}
	if rec.Severity != models.SeverityMedium {
		t.Errorf("expected severity medium, got %s", rec.Severity)
	}
	if rec.Position == nil || !strings.Contains(*rec.Position, "Main Street intersection") {
		t.Errorf("expected position with 'Main Street intersection', got %v", rec.Position)
	}
	if rec.Transcript != transcript {
		t.Errorf("transcript not stored verbatim")
	}
	if res.Confidence != 0.91 {
		t.Errorf("expected confidence 0.91, got %v", res.Confidence)
	}
	if len(res.Flags) != 0 {
		t.Errorf("expected no flags, got %v", res.Flags)
	}
	if !strings.HasPrefix(rec.AudioURL, "https://blobs.example.com/observations/proj-1/") {
		t.Errorf("audio url must point at permanent storage, got %s", rec.AudioURL)
	}
	if _, ok := env.store.objects[rec.AudioObject]; !ok {
		t.Errorf("audio blob %s not in permanent storage", rec.AudioObject)
	}
	if env.repo.count() != 1 {
		t.Errorf("expected 1 persisted record, got %d", env.repo.count())
	}
	if got := env.tempFileCount(t); got != 0 {
		t.Errorf("expected no leaked temp files, got %d", got)
	}
}

func TestIngestTranscriptionFailureCompletesDegraded(t *testing.T) {
	env := newIngestEnv(t, &fakeSTT{err: errBackendDown})

	res, err := env.svc.Ingest(context.Background(), validInput())
	if err != nil {
		t.Fatalf("transcription failure must not abort ingestion: %v", err)
	}

	rec := res.Record
	if rec.Category != models.CategoryOther {
		t.Errorf("expected default category other, got %s", rec.Category)
	}
	if rec.Severity != models.SeverityMedium {
		t.Errorf("expected default severity medium, got %s", rec.Severity)
	}
	if rec.Description == "" {
		t.Error("description must never be empty")
	}
	if res.Confidence != 0 {
		t.Errorf("expected confidence 0, got %v", res.Confidence)
	}
	found := false
	for _, f := range res.Flags {
		if f == FlagTranscriptionUnavailable {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s flag, got %v", FlagTranscriptionUnavailable, res.Flags)
	}

	var md map[string]any
	if err := json.Unmarshal(rec.Metadata, &md); err != nil {
		t.Fatalf("metadata should be valid json: %v", err)
	}
	if conv, _ := md["converted"].(bool); conv {
		t.Error("pass-through run must record converted=false")
	}

	if env.repo.count() != 1 {
		t.Errorf("degraded run must still persist, got %d records", env.repo.count())
	}
	if got := env.tempFileCount(t); got != 0 {
		t.Errorf("expected no leaked temp files, got %d", got)
	}
}

func TestIngestEmptyTranscriptIsSoftSuccess(t *testing.T) {
	env := newIngestEnv(t, &fakeSTT{text: "", conf: 0.2})

	res, err := env.svc.Ingest(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(res.Flags) != 0 {
		t.Errorf("empty recognition is a soft success, got flags %v", res.Flags)
	}
	if res.Record.Description == "" {
		t.Error("description must fall back to the placeholder")
	}
}

func TestIngestStorageFailureAbortsWithoutInsert(t *testing.T) {
	env := newIngestEnv(t, &fakeSTT{text: "a crack near the depot"})
	env.store.uploadErr = errBackendDown

	_, err := env.svc.Ingest(context.Background(), validInput())
	if err == nil {
		t.Fatal("expected failure when relocation fails")
	}
	if !utils.IsCode(err, utils.CodeStorageUnavailable) {
		t.Errorf("expected STORAGE_UNAVAILABLE, got %v", err)
	}
	if env.repo.count() != 0 {
		t.Errorf("no record may be persisted after storage failure, got %d", env.repo.count())
	}
	if got := env.tempFileCount(t); got != 0 {
		t.Errorf("expected no leaked temp files, got %d", got)
	}
}

func TestIngestPersistenceFailureToleratesOrphanBlob(t *testing.T) {
	env := newIngestEnv(t, &fakeSTT{text: "a crack near the depot"})
	env.repo.insertErr = errBackendDown

	_, err := env.svc.Ingest(context.Background(), validInput())
	if err == nil {
		t.Fatal("expected failure when persistence fails")
	}
	if !utils.IsCode(err, utils.CodeInternal) {
		t.Errorf("expected INTERNAL, got %v", err)
	}
	// The relocated blob is an intentionally tolerated orphan.
	if len(env.store.objects) != 1 {
		t.Errorf("expected the relocated blob to remain, got %d objects", len(env.store.objects))
	}
	if got := env.tempFileCount(t); got != 0 {
		t.Errorf("expected no leaked temp files, got %d", got)
	}
}

func TestIngestDescribesPassThroughAudioToBackend(t *testing.T) {
	// The transcoder is absent in this environment, so the backend must be
	// handed the original container, never the canonical format claim.
	provider := &fakeSTT{text: "a crack near the depot"}
	env := newIngestEnv(t, provider)

	if _, err := env.svc.Ingest(context.Background(), validInput()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if provider.gotClip.Canonical {
		t.Error("pass-through audio must not be marked canonical")
	}
	if provider.gotClip.MimeType != "audio/webm" {
		t.Errorf("expected declared mime audio/webm, got %q", provider.gotClip.MimeType)
	}
	if len(provider.gotClip.Content) == 0 {
		t.Error("expected clip content to carry the audio bytes")
	}
}

func TestIngestCancelledRequestCleansUpWithoutInsert(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &fakeSTT{text: "a crack near the depot", onTranscribe: cancel}
	env := newIngestEnv(t, provider)

	_, err := env.svc.Ingest(ctx, validInput())
	if err == nil {
		t.Fatal("expected failure for a cancelled request")
	}
	if !utils.IsCode(err, utils.CodeCanceled) {
		t.Errorf("expected CANCELLED, got %v", err)
	}
	if utils.IsCode(err, utils.CodeStorageUnavailable) {
		t.Error("a client disconnect must not surface as STORAGE_UNAVAILABLE")
	}
	if env.repo.count() != 0 {
		t.Errorf("no record may be persisted after cancellation, got %d", env.repo.count())
	}
	if len(env.store.objects) != 0 {
		t.Errorf("no blob may be relocated after cancellation, got %d", len(env.store.objects))
	}
	// Cleanup is not cancellable: the temp arena must still be empty.
	if got := env.tempFileCount(t); got != 0 {
		t.Errorf("expected no leaked temp files, got %d", got)
	}
}

func TestIngestRejectsEmptyPayload(t *testing.T) {
	env := newIngestEnv(t, &fakeSTT{})

	in := validInput()
	in.Audio = nil
	if _, err := env.svc.Ingest(context.Background(), in); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT for empty payload, got %v", err)
	}

	in = validInput()
	in.CreatedBy = ""
	if _, err := env.svc.Ingest(context.Background(), in); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT for missing creator, got %v", err)
	}
}
