package handlers

import (
	"errors"
	"net/http"

	"github.com/Brownie44l1/plant-classifier/internal/pipeline"
)

// mapPredictError picks the status code and the message shown on the form.
func mapPredictError(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError
	var predErr *pipeline.PredictionError

	switch {
	case errors.Is(err, pipeline.ErrModelUnavailable):
		return http.StatusServiceUnavailable, err.Error()

	case errors.Is(err, pipeline.ErrMissingFile),
		errors.Is(err, pipeline.ErrEmptyFilename):
		return http.StatusBadRequest, err.Error()

	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, err.Error()

	case errors.Is(err, pipeline.ErrDecode):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.As(err, &predErr):
		return http.StatusInternalServerError, err.Error()

	default:
		return http.StatusInternalServerError, "prediction failed: " + err.Error()
	}
}
