package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Corgi239/Speech-Command-Recognition/internal/audio"
	"github.com/Corgi239/Speech-Command-Recognition/internal/models"
	"github.com/Corgi239/Speech-Command-Recognition/internal/services"
	"github.com/Corgi239/Speech-Command-Recognition/internal/utils"
	"github.com/gin-gonic/gin"
)

const maxClipBytes = 10 << 20

type PredictHandler struct {
	svc services.PredictionService
}

func NewPredictHandler(svc services.PredictionService) *PredictHandler {
	return &PredictHandler{svc: svc}
}

// PredictFile classifies an uploaded WAV clip.
func (h *PredictHandler) PredictFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PredictHandler.PredictFile", "missing multipart field 'file'", err))
		return
	}

	// basic validation
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".wav" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PredictHandler.PredictFile", "only .wav is allowed", nil))
		return
	}
	if fh.Size <= 0 || fh.Size > maxClipBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PredictHandler.PredictFile", "file too large (max 10MB)", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "PredictHandler.PredictFile", "failed to open upload", err))
		return
	}
	defer file.Close()

	// sniff content type (read 512 bytes)
	head := make([]byte, 512)
	n, _ := file.Read(head)
	head = head[:n]
	if ct := http.DetectContentType(head); ct != "audio/wave" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PredictHandler.PredictFile", "invalid content type (must be wav)", nil))
		return
	}

	rest, err := io.ReadAll(io.LimitReader(file, maxClipBytes))
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "PredictHandler.PredictFile", "failed to read upload", err))
		return
	}
	clip := append(head, rest...)

	result, err := h.svc.PredictClip(c.Request.Context(), models.SourceFile, clip)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type recordingRequest struct {
	Samples map[string]uint8 `json:"samples" binding:"required"`
}

// PredictRecording classifies a sparse-sample map captured by the browser
// recorder. Keys are byte offsets into the original WAV stream.
func (h *PredictHandler) PredictRecording(c *gin.Context) {
	var req recordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PredictHandler.PredictRecording", "invalid json body", err))
		return
	}

	samples, err := audio.ParseSparseSamples(req.Samples)
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PredictHandler.PredictRecording", "invalid sample indices", err))
		return
	}

	result, err := h.svc.PredictRecording(c.Request.Context(), samples)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
