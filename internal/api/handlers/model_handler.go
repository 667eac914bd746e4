package handlers

import (
	"net/http"

	"github.com/Corgi239/Speech-Command-Recognition/internal/audio"
	"github.com/Corgi239/Speech-Command-Recognition/internal/classifier"
	"github.com/Corgi239/Speech-Command-Recognition/internal/mfcc"
	"github.com/gin-gonic/gin"
)

type ModelHandler struct {
	clf       *classifier.Classifier
	extractor *mfcc.Extractor
}

func NewModelHandler(clf *classifier.Classifier, extractor *mfcc.Extractor) *ModelHandler {
	return &ModelHandler{clf: clf, extractor: extractor}
}

// Info describes the loaded model so the frontend can render the vocabulary
// and recorder settings without hardcoding them.
func (h *ModelHandler) Info(c *gin.Context) {
	rows, cols := h.clf.InputShape()
	params := h.extractor.Params()

	c.JSON(http.StatusOK, gin.H{
		"labels": h.clf.Labels(),
		"input_shape": gin.H{
			"time_steps":   rows,
			"coefficients": cols,
		},
		"audio": gin.H{
			"sample_rate": audio.TargetSampleRate,
			"samples":     audio.TargetSamples,
		},
		"extraction": gin.H{
			"num_coeffs": params.NumCoeffs,
			"fft_size":   params.FFTSize,
			"hop_size":   params.HopSize,
			"num_mels":   params.NumMels,
		},
	})
}
