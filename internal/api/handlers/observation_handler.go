package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbruun/roadlog/internal/models"
	"github.com/mbruun/roadlog/internal/services"
	"github.com/mbruun/roadlog/internal/utils"
)

const maxAudioBytes = 25 << 20

type ObservationHandler struct {
	ingest services.IngestionService
	svc    services.ObservationService
}

func NewObservationHandler(ingest services.IngestionService, svc services.ObservationService) *ObservationHandler {
	return &ObservationHandler{ingest: ingest, svc: svc}
}

// IngestResponse is the success payload: the persisted record plus the
// transcription and its confidence (0 when the run completed degraded).
type IngestResponse struct {
	Record        *models.FieldObservation `json:"record"`
	Transcription string                   `json:"transcription"`
	Confidence    float64                  `json:"confidence"`
	Flags         []string                 `json:"flags,omitempty"`
}

func (h *ObservationHandler) Ingest(c *gin.Context) {
	projectID := c.Param("project_id")
	createdBy := strings.TrimSpace(c.PostForm("created_by"))
	if projectID == "" || createdBy == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ObservationHandler.Ingest", "project_id and created_by are required", nil))
		return
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ObservationHandler.Ingest", "missing multipart field 'audio'", err))
		return
	}
	if fh.Size <= 0 || fh.Size > maxAudioBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ObservationHandler.Ingest", "audio must be between 1 byte and 25MB", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeUnreadableUpload, "ObservationHandler.Ingest", "failed to open upload", err))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
	if err != nil {
		writeError(c, utils.E(utils.CodeUnreadableUpload, "ObservationHandler.Ingest", "failed to read upload", err))
		return
	}

	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}

	res, err := h.ingest.Ingest(c.Request.Context(), services.IngestInput{
		ProjectID:    projectID,
		CreatedBy:    createdBy,
		Audio:        audio,
		DeclaredMime: mime,
		FileExt:      strings.ToLower(filepath.Ext(fh.Filename)),
		Language:     strings.TrimSpace(c.PostForm("language")),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, IngestResponse{
		Record:        res.Record,
		Transcription: res.Transcript,
		Confidence:    res.Confidence,
		Flags:         res.Flags,
	})
}

func (h *ObservationHandler) Get(c *gin.Context) {
	row, err := h.svc.Get(c.Request.Context(), c.Param("project_id"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *ObservationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.svc.List(c.Request.Context(), c.Param("project_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []models.FieldObservation{}
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ObservationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("project_id"), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
