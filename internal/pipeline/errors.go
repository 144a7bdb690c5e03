package pipeline

import "errors"

var (
	ErrModelUnavailable = errors.New("model unavailable")
	ErrMissingFile      = errors.New("no file uploaded")
	ErrEmptyFilename    = errors.New("empty filename")
	ErrDecode           = errors.New("cannot decode image")
)

const (
	StageUpload = "upload"
	StageSave   = "save"
	StageDecode = "decode"
	StageInfer  = "infer"
	StageSelect = "select"
)

// PredictionError wraps any failure after the upload passed validation.
type PredictionError struct {
	Stage string
	Err   error
}

func (e *PredictionError) Error() string {
	return "prediction failed: " + e.Err.Error()
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

func wrap(stage string, err error) error {
	return &PredictionError{Stage: stage, Err: err}
}
